package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/metrics"
)

// HTTPRequestSizeMiddleware 记录请求体大小. 指标在构造时注册，避免并发请求重复注册.
func HTTPRequestSizeMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m.RegisterRequestSizeMetrics()

	return func(c *gin.Context) {
		c.Next()
		m.HTTPRequestSizeBytes.WithLabelValues(c.Request.Method, routePath(c)).Observe(float64(requestSize(c)))
	}
}

func requestSize(c *gin.Context) int64 {
	if c.Request.ContentLength > 0 {
		return c.Request.ContentLength
	}
	return 0
}
