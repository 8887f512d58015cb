// Package xerrors 提供统一的错误模型，支持错误分类、业务码、字段定位与堆栈捕获.
package xerrors

import (
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType 错误的大类
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg
	ErrNotFound
	ErrUnavailable
)

// Error 增强型错误结构
type Error struct {
	Type    ErrorType `json:"type"`
	Code    int       `json:"code"`            // 业务自定义错误码
	Message string    `json:"message"`         // 对外展示的友好消息
	Detail  string    `json:"detail"`          // 对内调试的详细信息
	Field   string    `json:"field,omitempty"` // 出错的配置字段 (点分路径)
	Cause   error     `json:"-"`               // 原始错误
	Stack   []string  `json:"-"`               // 堆栈追踪
}

// Error 实现 error 接口
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %d: %s (Cause: %v)", e.Type.String(), e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %d: %s", e.Type.String(), e.Code, msg)
}

// Unwrap 实现 Go 1.13 解包接口
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按业务码比较，使派生错误可以匹配哨兵错误.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

func (t ErrorType) String() string {
	names := [...]string{"Unknown", "Internal", "InvalidArg", "NotFound", "Unavailable"}
	if int(t) >= len(names) {
		return "Unknown"
	}
	return names[t]
}

// --- 核心构造函数 ---

// New 创建新错误并自动捕获堆栈
func New(errType ErrorType, code int, message string, detail string, cause error) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
	e.captureStack()
	return e
}

// captureStack 捕获当前调用栈 (深度限制 10 层)
func (e *Error) captureStack() {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		e.Stack = append(e.Stack, fmt.Sprintf("%s:%d (%s)", frame.File, frame.Line, frame.Function))
		if !more || len(e.Stack) >= depth {
			break
		}
	}
}

// --- 链式 API ---

// WithDetail 派生一个携带调试详情的新错误，哨兵可安全并发使用.
func (e *Error) WithDetail(format string, args ...any) *Error {
	derived := New(e.Type, e.Code, e.Message, fmt.Sprintf(format, args...), e.Cause)
	derived.Field = e.Field
	return derived
}

// WithField 派生一个携带字段路径的新错误，不修改哨兵本身.
func (e *Error) WithField(field string) *Error {
	derived := New(e.Type, e.Code, e.Message, e.Detail, e.Cause)
	derived.Field = field
	return derived
}

// --- 快捷构造工具 ---

// Internal 构造内部错误.
func Internal(msg string, cause error) *Error {
	return New(ErrInternal, 500, msg, "", cause)
}

// InvalidArg 构造参数错误.
func InvalidArg(msg string) *Error {
	return New(ErrInvalidArg, 400, msg, "", nil)
}

// InvalidField 构造指向具体配置字段的参数错误.
func InvalidField(field, format string, args ...any) *Error {
	e := New(ErrInvalidArg, ErrInvalidConfig.Code, ErrInvalidConfig.Message, fmt.Sprintf(format, args...), nil)
	e.Field = field
	return e
}

// Wrap 包装现有错误并捕获堆栈
func Wrap(err error, errType ErrorType, msg string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := FromError(err); ok {
		wrapped := New(e.Type, e.Code, msg, e.Detail, err)
		wrapped.Field = e.Field
		return wrapped
	}
	return New(errType, int(errType), msg, "", err)
}

// HTTPStatus 自动映射 HTTP 状态码
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrInvalidArg:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError 尝试转换
func FromError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := err.(*Error)
	return e, ok
}
