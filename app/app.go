// Package app 负责进程装配与生命周期: 加载配置、初始化日志/指标/追踪，
// 以及服务模式下的信号处理与优雅关闭.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

// App 管理一组服务的运行与关闭.
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建应用.
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lifecycle == nil {
		o.lifecycle = NewLifecycle(logger)
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 启动组件与服务，阻塞到收到 SIGINT/SIGTERM、ctx 取消或任一服务出错，
// 然后关闭全部组件. 服务自身在 ctx 取消时负责优雅停止.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid())
	if err := a.opts.lifecycle.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error { return srv.Start(gctx) })
	}
	if len(a.opts.servers) == 0 {
		<-ctx.Done()
	}
	runErr := g.Wait()
	if runErr != nil {
		a.logger.Error("server exited with error", "error", runErr)
	}
	a.logger.Info("shutting down application", "name", a.name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer cancel()
	if err := a.opts.lifecycle.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		a.logger.Info("application shut down gracefully")
	}
	return runErr
}
