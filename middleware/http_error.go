package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/response"
)

// HTTPErrorHandler 将处理器通过 c.Error 登记的最后一个错误输出为统一错误响应.
func HTTPErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		response.Error(c, c.Errors.Last().Err)
	}
}
