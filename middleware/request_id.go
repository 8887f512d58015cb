package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderXRequestID 请求 ID 请求/响应头.
	HeaderXRequestID = "X-Request-ID"
	// ContextKeyRequestID 请求 ID 在 gin.Context 中的键.
	ContextKeyRequestID = "request_id"
)

// RequestID 透传或生成请求 ID，并写回响应头.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
