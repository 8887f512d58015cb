package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/creditpool/analytics"
	"github.com/wyfcoding/creditpool/cache"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/engine"
	"github.com/wyfcoding/creditpool/logging"
	"github.com/wyfcoding/creditpool/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope[T any] struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
	Data   T      `json:"data"`
}

func newTestRouter(t *testing.T, mut ...func(*config.Config)) (*gin.Engine, *SimulationHandler) {
	t.Helper()

	conf := config.Default()
	conf.Server.RateLimit = 0
	conf.Version = "test"
	conf.Server.MaxPaths = 500
	conf.Simulation.MonteCarlo.Paths = 64
	for _, m := range mut {
		m(&conf)
	}

	logger := logging.NewNop()
	m := metrics.NewMetrics("test")
	store, err := cache.NewBigCache(time.Minute, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := engine.New(engine.WithLogger(logger), engine.WithMetrics(m))
	results := cache.NewResults[analytics.Summary](store, m, logger.Logger)
	h := NewSimulationHandler(eng, conf.Simulation, conf.Server.MaxPaths, results, logger.Logger)
	return NewRouter(&conf, h, m, logger.Logger), h
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestDefaultsFollowSetBase(t *testing.T) {
	r, h := newTestRouter(t)

	env := decode[config.Simulation](t, do(r, http.MethodGet, "/v1/simulations/defaults", ""))
	assert.Equal(t, 64, env.Data.MonteCarlo.Paths)
	assert.Equal(t, 0.12, env.Data.Loan.Coupon)

	next := h.Base()
	next.Loan.Coupon = 0.09
	h.SetBase(next)

	env = decode[config.Simulation](t, do(r, http.MethodGet, "/v1/simulations/defaults", ""))
	assert.Equal(t, 0.09, env.Data.Loan.Coupon)
}

func TestRunSimulationIsMemoised(t *testing.T) {
	r, _ := newTestRouter(t)
	body := `{"paths": 48, "coupon": 0.10, "seed": 7}`

	first := do(r, http.MethodPost, "/v1/simulations", body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get(HeaderXCache))
	a := decode[analytics.Summary](t, first)
	assert.Equal(t, 48, a.Data.Paths)
	assert.Equal(t, "pool", a.Data.Variant)
	assert.NotEmpty(t, a.Data.RunID)
	assert.Len(t, a.Data.AnnualCashFlows, 10)

	second := do(r, http.MethodPost, "/v1/simulations", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(HeaderXCache))
	b := decode[analytics.Summary](t, second)
	assert.Equal(t, a.Data.RunID, b.Data.RunID)
	assert.Equal(t, a.Data.IRR, b.Data.IRR)
}

func TestRunSimulationEmptyBodyUsesBase(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/v1/simulations", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[analytics.Summary](t, w)
	assert.Equal(t, 64, env.Data.Paths)
}

func TestRunSimulationCapitalVariant(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/v1/simulations", `{"paths": 32, "capital": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[analytics.Summary](t, w)
	assert.Equal(t, "capital", env.Data.Variant)
	assert.NotNil(t, env.Data.SponsorIRR)
}

func TestRunSimulationRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"coupon above one", `{"coupon": 1.5}`, "loan.coupon"},
		{"negative hazard", `{"base_hazard": -0.1}`, "default.base_hazard"},
		{"too many paths", `{"paths": 501}`, "monte_carlo.paths"},
		{"zero paths", `{"paths": 0}`, "monte_carlo.paths"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/simulations", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode[any](t, w)
			assert.Equal(t, tc.field, env.Field)
		})
	}

	w := do(r, http.MethodPost, "/v1/simulations", `{"paths": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpointExposesRuns(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/simulations", `{"paths": 16}`).Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `creditpool_runs_total{status="ok",variant="pool"} 1`)
	assert.Contains(t, w.Body.String(), `creditpool_cache_requests_total{result="miss"} 1`)
	assert.Contains(t, w.Body.String(), `http_server_requests_total{method="POST",path="/v1/simulations",status="200"} 1`)
}

func TestOverridesApplyLeavesBaseUntouched(t *testing.T) {
	base := config.DefaultSimulation()
	paths, vol, capital := 10, 0.3, true

	cfg := Overrides{Paths: &paths, CollateralVol: &vol, Capital: &capital}.Apply(base)

	assert.Equal(t, 10, cfg.MonteCarlo.Paths)
	assert.Equal(t, 0.3, cfg.Collateral.Volatility)
	assert.True(t, cfg.Capital.Enabled)
	assert.Equal(t, base.Loan.Coupon, cfg.Loan.Coupon)

	assert.Equal(t, 5000, base.MonteCarlo.Paths)
	assert.Equal(t, 0.15, base.Collateral.Volatility)
	assert.False(t, base.Capital.Enabled)
}

func TestGinServerStopWithoutStart(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := NewGinServer(r, config.ServerConfig{Addr: "127.0.0.1:0"}, logging.NewNop().Logger)
	assert.Equal(t, defaultShutdownTimeout, srv.shutdownTimeout)

	assert.NoError(t, srv.Stop(t.Context()))
}

func TestRunSimulationRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/simulations", `{"paths": 8}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/v1/simulations", `{"paths": 8}`).Code)
	// 限流只作用于提交接口.
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/v1/simulations/defaults", "").Code)
}

func TestRunGuards(t *testing.T) {
	sc := config.Default().Server
	assert.Len(t, runGuards(sc), 2)

	sc.RateLimit = 0
	sc.MaxConcurrentRuns = 0
	assert.Empty(t, runGuards(sc))
}
