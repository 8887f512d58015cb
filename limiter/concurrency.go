// Package limiter 为模拟接口提供准入控制: 并发信号量限制同时运行的模拟数，
// 令牌桶按客户端限制提交速率.
package limiter

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/creditpool/xerrors"
)

// ErrConcurrencyLimit 同时运行的模拟数已达上限.
var ErrConcurrencyLimit = xerrors.New(xerrors.ErrUnavailable, 503101, "simulation capacity exhausted", "", nil)

// ConcurrencyLimiter 并发控制接口. Release 必须与成功的 Acquire 成对调用.
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// SemaphoreLimiter 使用带缓冲通道实现的信号量.
type SemaphoreLimiter struct {
	sem      chan struct{}
	disabled bool
}

// NewSemaphoreLimiter 创建信号量，max <= 0 表示不限制.
func NewSemaphoreLimiter(max int) *SemaphoreLimiter {
	if max <= 0 {
		return &SemaphoreLimiter{disabled: true}
	}
	return &SemaphoreLimiter{sem: make(chan struct{}, max)}
}

// Acquire 阻塞获取令牌，ctx 结束时返回 ErrConcurrencyLimit.
func (l *SemaphoreLimiter) Acquire(ctx context.Context) error {
	if l == nil || l.disabled {
		return nil
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrConcurrencyLimit.WithDetail("waited for a slot: %v", ctx.Err())
	}
}

// Release 归还令牌.
func (l *SemaphoreLimiter) Release() {
	if l == nil || l.disabled {
		return
	}

	select {
	case <-l.sem:
	default:
		slog.Warn("concurrency limiter release without acquire")
	}
}
