package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/engine"
	"github.com/wyfcoding/creditpool/logging"
	"github.com/wyfcoding/creditpool/metrics"
	"github.com/wyfcoding/creditpool/tracing"
)

// Runtime 是进程级的共享基础设施.
type Runtime struct {
	Config    config.Config
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	Lifecycle *Lifecycle
}

// Bootstrap 加载配置并初始化日志、指标与追踪. path 为空时使用默认配置.
// 追踪导出器的关闭登记在返回的 Lifecycle 中.
func Bootstrap(path string) (*Runtime, error) {
	conf := config.Default()
	if path != "" {
		if err := config.Load(path, &conf); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	logger := initLogger(&conf)
	rt := &Runtime{
		Config:    conf,
		Logger:    logger,
		Metrics:   initMetrics(&conf),
		Lifecycle: NewLifecycle(logger.Logger),
	}

	if err := rt.initTracing(); err != nil {
		return nil, err
	}
	if path != "" {
		config.PrintWithMask(conf)
	}
	return rt, nil
}

// Engine 创建绑定运行时日志与指标的模拟引擎.
func (rt *Runtime) Engine() *engine.Engine {
	return engine.New(
		engine.WithLogger(rt.Logger),
		engine.WithMetrics(rt.Metrics),
		engine.WithWorkers(rt.Config.Simulation.MonteCarlo.Workers),
	)
}

func initLogger(conf *config.Config) *logging.Logger {
	l := logging.NewFromConfig(logging.Config{
		Service:    conf.Server.Name,
		Module:     "app",
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		Console:    conf.Log.Console,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   conf.Log.Compress,
	})
	slog.SetDefault(l.Logger)
	return l
}

func initMetrics(conf *config.Config) *metrics.Metrics {
	m := metrics.NewMetrics(conf.Server.Name)
	m.RegisterBuildInfo(conf.Server.Name, conf.Version)
	return m
}

func (rt *Runtime) initTracing() error {
	tc := rt.Config.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = rt.Config.Server.Name
	}
	shutdown, err := tracing.InitTracer(tc)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	rt.Lifecycle.Append(Hook{
		Name:   "tracer",
		OnStop: func(ctx context.Context) error { return shutdown(ctx) },
	})
	return nil
}
