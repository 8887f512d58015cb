// Command creditpool 运行资金池信用模拟: 默认执行一次运行并以 JSON 输出汇总，
// --serve 时启动 HTTP 服务.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/wyfcoding/creditpool/analytics"
	"github.com/wyfcoding/creditpool/app"
	"github.com/wyfcoding/creditpool/cache"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/server"
)

type flags struct {
	configPath string
	paths      int
	seed       uint64
	capital    bool
	serve      bool
}

func parseFlags(args []string) (flags, *pflag.FlagSet, error) {
	var f flags
	fs := pflag.NewFlagSet("creditpool", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a TOML config file")
	fs.IntVarP(&f.paths, "paths", "n", 0, "number of Monte Carlo paths (overrides config)")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed (overrides config)")
	fs.BoolVar(&f.capital, "capital", false, "enable the debt/equity/manager capital structure")
	fs.BoolVar(&f.serve, "serve", false, "serve the HTTP API instead of running once")
	err := fs.Parse(args)
	return f, fs, err
}

func main() {
	f, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	rt, err := app.Bootstrap(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlags(&rt.Config.Simulation, f, fs)

	if f.serve {
		err = serve(rt)
	} else {
		err = runOnce(context.Background(), rt, os.Stdout)
	}
	if err != nil {
		rt.Logger.Error("creditpool exited with error", "error", err)
		os.Exit(1)
	}
}

// applyFlags 只覆盖命令行显式给出的参数.
func applyFlags(cfg *config.Simulation, f flags, fs *pflag.FlagSet) {
	if fs.Changed("paths") {
		cfg.MonteCarlo.Paths = f.paths
	}
	if fs.Changed("seed") {
		cfg.MonteCarlo.Seed = f.seed
	}
	if fs.Changed("capital") {
		cfg.Capital.Enabled = f.capital
	}
}

func runOnce(ctx context.Context, rt *app.Runtime, out io.Writer) error {
	defer func() {
		if err := rt.Lifecycle.Stop(context.Background()); err != nil {
			rt.Logger.Warn("shutdown components failed", "error", err)
		}
	}()

	cfg := rt.Config.Simulation
	res, err := rt.Engine().Run(ctx, cfg, cfg.MonteCarlo.Paths)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(analytics.Summarize(res))
}

func serve(rt *app.Runtime) error {
	conf := rt.Config
	logger := rt.Logger.Logger
	gin.SetMode(gin.ReleaseMode)

	var results *cache.Results[analytics.Summary]
	if conf.Cache.Enabled {
		store, err := cache.NewBigCache(conf.Cache.TTL, conf.Cache.MaxMB)
		if err != nil {
			return err
		}
		rt.Lifecycle.Append(app.Hook{
			Name:   "result-cache",
			OnStop: func(context.Context) error { return store.Close() },
		})
		results = cache.NewResults[analytics.Summary](store, rt.Metrics, logger)
	}

	h := server.NewSimulationHandler(rt.Engine(), conf.Simulation, conf.Server.MaxPaths, results, logger)
	config.RegisterReloadHook(func(next *config.Config) {
		h.SetBase(next.Simulation)
		logger.Info("simulation defaults reloaded", "config", next.Simulation.String())
	})

	router := server.NewRouter(&conf, h, rt.Metrics, logger)
	srv := server.NewGinServer(router, conf.Server, logger)

	return app.New(conf.Server.Name, logger,
		app.WithServer(srv),
		app.WithLifecycle(rt.Lifecycle),
		app.WithShutdownTimeout(conf.Server.ShutdownTimeout),
	).Run(context.Background())
}
