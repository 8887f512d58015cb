package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/tracing"
)

// HeaderXTraceID Trace ID 响应头.
const HeaderXTraceID = "X-Trace-ID"

// TraceIDHeader 把当前 Span 的 Trace ID 写入响应头，需挂在 TracingMiddleware 之后.
func TraceIDHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
			c.Header(HeaderXTraceID, traceID)
		}
		c.Next()
	}
}
