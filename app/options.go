package app

import (
	"time"

	"github.com/wyfcoding/creditpool/server"
)

// Option 配置 App.
type Option func(*options)

type options struct {
	servers         []server.Server
	lifecycle       *Lifecycle
	shutdownTimeout time.Duration
}

// WithServer 注册随应用启停的服务.
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithLifecycle 指定组件生命周期，服务停止后按注册的逆序关闭.
func WithLifecycle(l *Lifecycle) Option {
	return func(o *options) { o.lifecycle = l }
}

// WithShutdownTimeout 设置关闭组件的总超时，d <= 0 时保持默认值.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
