package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/metrics"
)

// MetricsOptions 定义指标中间件的可选参数.
type MetricsOptions struct {
	SlowThreshold time.Duration
	SkipPaths     []string
}

// HTTPMetricsMiddlewareWithOptions 返回一个可配置的 HTTP 指标采集中间件.
// 路径使用路由模板，未匹配路由的请求归入 "unmatched"，避免标签基数失控.
func HTTPMetricsMiddlewareWithOptions(m *metrics.Metrics, opts MetricsOptions) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, path := range opts.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		path := routePath(c)
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		inFlight := m.HTTPInFlight.WithLabelValues(c.Request.Method, path)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())
		if opts.SlowThreshold > 0 && latency > opts.SlowThreshold {
			m.HTTPSlowRequestsTotal.WithLabelValues(c.Request.Method, path).Inc()
		}
	}
}

func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}
