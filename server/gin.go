// Package server 提供模拟服务的 HTTP 入口: Gin 服务生命周期、路由与模拟请求处理.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/config"
)

const defaultShutdownTimeout = 5 * time.Second

// GinServer 封装 http.Server，提供优雅启停.
type GinServer struct {
	server          *http.Server
	addr            string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewGinServer 创建 Gin 服务.
func NewGinServer(engine *gin.Engine, cfg config.ServerConfig, logger *slog.Logger) *GinServer {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &GinServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr:            cfg.Addr,
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// Start 启动服务并阻塞，ctx 取消时优雅关闭.
func (s *GinServer) Start(ctx context.Context) error {
	s.logger.Info("starting gin server", "addr", s.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("gin server stopping due to context cancellation")
		return s.Stop(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop 在关闭超时内等待进行中的模拟请求完成.
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping gin server gracefully", "timeout", s.shutdownTimeout)
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
