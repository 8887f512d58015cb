// Package response 提供统一的 HTTP 响应封装，按 xerrors 的错误分类映射状态码.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/xerrors"
)

// StatusClientClosedRequest 客户端在模拟完成前断开.
const StatusClientClosedRequest = 499

// HTTPStatusProvider 定义了能够提供 HTTP 状态码的错误接口.
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// Success 发送一个标准的成功响应: HTTP 200，业务码 0.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithStatus 发送一个带有指定 HTTP 状态码的成功响应.
func SuccessWithStatus(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithRawData 发送原始数据 (不包装 code 和 msg)，用于健康检查.
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应.
// 错误链上的 *xerrors.Error 决定状态码与业务码，并透出出错的配置字段；
// 上下文取消映射为 499，超时映射为 504，其余兜底为 500.
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	var xe *xerrors.Error
	switch {
	case errors.As(err, &xe):
		c.JSON(xe.HTTPStatus(), gin.H{
			"code":   xe.Code,
			"msg":    xe.Message,
			"detail": xe.Detail,
			"field":  xe.Field,
		})
	case errors.Is(err, context.Canceled):
		ErrorWithStatus(c, StatusClientClosedRequest, "request canceled", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		ErrorWithStatus(c, http.StatusGatewayTimeout, "request timeout", err.Error())
	default:
		statusCode := http.StatusInternalServerError
		var sp HTTPStatusProvider
		if errors.As(err, &sp) {
			statusCode = sp.HTTPStatus()
		}
		ErrorWithStatus(c, statusCode, err.Error(), "")
	}
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应.
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, gin.H{
		"code":   status,
		"msg":    msg,
		"detail": detail,
	})
}
