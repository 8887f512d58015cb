package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Hook 一个组件的启动与停止逻辑，任一函数可为空.
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Lifecycle 管理追踪导出器、结果缓存等组件的启停顺序.
type Lifecycle struct {
	logger *slog.Logger
	mu     sync.Mutex
	hooks  []Hook
}

// NewLifecycle 创建生命周期管理器.
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Append 追加一个钩子.
func (l *Lifecycle) Append(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Start 按注册顺序启动，遇错即停.
func (l *Lifecycle) Start(ctx context.Context) error {
	for _, hook := range l.snapshot() {
		if hook.OnStart == nil {
			continue
		}
		l.logger.Debug("starting component", "name", hook.Name)
		if err := hook.OnStart(ctx); err != nil {
			l.logger.Error("failed to start component", "name", hook.Name, "error", err)
			return err
		}
	}
	return nil
}

// Stop 按逆序停止全部组件，汇总所有错误.
func (l *Lifecycle) Stop(ctx context.Context) error {
	hooks := l.snapshot()
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.OnStop == nil {
			continue
		}
		l.logger.Debug("stopping component", "name", hook.Name)
		if err := hook.OnStop(ctx); err != nil {
			l.logger.Error("failed to stop component", "name", hook.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Lifecycle) snapshot() []Hook {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Hook(nil), l.hooks...)
}
