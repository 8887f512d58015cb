package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/limiter"
	"github.com/wyfcoding/creditpool/logging"
	"github.com/wyfcoding/creditpool/response"
)

// ConcurrencyLimit 限制同时执行的处理器数量. 拿不到令牌时最多等待 waitTimeout，
// 超时返回 503.
func ConcurrencyLimit(l limiter.ConcurrencyLimiter, waitTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		acquireCtx := ctx
		if waitTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, waitTimeout)
			defer cancel()
		}

		if err := l.Acquire(acquireCtx); err != nil {
			logging.Warn(ctx, "simulation concurrency limit exceeded", "path", c.FullPath(), "error", err)
			response.Error(c, err)
			c.Abort()
			return
		}

		defer l.Release()
		c.Next()
	}
}
