package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wyfcoding/creditpool/limiter"
	"github.com/wyfcoding/creditpool/logging"
	"github.com/wyfcoding/creditpool/metrics"
	"github.com/wyfcoding/creditpool/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyRequestID))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/id", nil))
	generated := w.Header().Get(HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logging.NewNop().Logger))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body["msg"])
}

func TestMaxBodyBytesRejectsLargeBody(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"paths": 100000}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHTTPErrorHandlerMapsFieldErrors(t *testing.T) {
	r := gin.New()
	r.Use(HTTPErrorHandler())
	r.POST("/run", func(c *gin.Context) {
		_ = c.Error(xerrors.InvalidField("loan.coupon", "must be in [0, 1]"))
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "loan.coupon", body["field"])
	assert.EqualValues(t, xerrors.ErrInvalidConfig.Code, body["code"])
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(TimeoutMiddleware(time.Minute))
	var hasDeadline bool
	r.GET("/t", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.True(t, hasDeadline)
}

func TestHTTPMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewMetrics("test")
	r := gin.New()
	r.Use(HTTPMetricsMiddlewareWithOptions(m, MetricsOptions{SkipPaths: []string{"/healthz"}}), HTTPRequestSizeMiddleware(m))
	r.GET("/v1/runs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/runs/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.HTTPRequestSizeBytes))
}

func TestConcurrencyLimitRejectsWhenBusy(t *testing.T) {
	sem := limiter.NewSemaphoreLimiter(1)
	require.NoError(t, sem.Acquire(t.Context()))

	r := gin.New()
	r.Use(ConcurrencyLimit(sem, 5*time.Millisecond))
	r.POST("/run", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	sem.Release()
	w = serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 上一个请求结束后令牌已归还.
	w = serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(limiter.NewKeyedLimiter(rate.Every(time.Hour), 1)))
	r.POST("/run", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Code)
}
