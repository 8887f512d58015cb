package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/limiter"
	"github.com/wyfcoding/creditpool/metrics"
	"github.com/wyfcoding/creditpool/middleware"
	"github.com/wyfcoding/creditpool/response"
)

const (
	healthPath        = "/healthz"
	slowRequestCutoff = 30 * time.Second
)

// NewRouter 组装中间件链与路由. m 为 nil 时不暴露指标端点.
func NewRouter(conf *config.Config, h *SimulationHandler, m *metrics.Metrics, logger *slog.Logger) *gin.Engine {
	metricsPath := conf.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := NewDefaultGinEngine(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.TracingMiddleware(conf.Server.Name),
		middleware.TraceIDHeader(),
		middleware.Logger(logger),
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{
			SlowThreshold: slowRequestCutoff,
			SkipPaths:     []string{metricsPath, healthPath},
		}),
		middleware.HTTPRequestSizeMiddleware(m),
		middleware.MaxBodyBytes(conf.Server.MaxBodyBytes),
		middleware.TimeoutMiddleware(conf.Server.RequestTimeout),
		middleware.HTTPErrorHandler(),
	)

	r.GET(healthPath, func(c *gin.Context) {
		response.SuccessWithRawData(c, gin.H{"status": "ok", "version": conf.Version})
	})
	if m != nil && conf.Metrics.Enabled {
		r.GET(metricsPath, gin.WrapH(m.Handler()))
	}
	h.Register(r, runGuards(conf.Server)...)
	return r
}

// runGuards 提交模拟前的准入控制: 先按客户端限流，再占用并发令牌.
func runGuards(sc config.ServerConfig) []gin.HandlerFunc {
	var guards []gin.HandlerFunc
	if sc.RateLimit > 0 {
		burst := max(sc.RateBurst, 1)
		guards = append(guards, middleware.RateLimit(limiter.NewKeyedLimiter(rate.Limit(sc.RateLimit), burst)))
	}
	if sc.MaxConcurrentRuns > 0 {
		guards = append(guards, middleware.ConcurrencyLimit(limiter.NewSemaphoreLimiter(sc.MaxConcurrentRuns), sc.QueueTimeout))
	}
	return guards
}
