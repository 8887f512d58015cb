// Package engine 编排一次完整的蒙特卡洛运行：
// 利率与抵押物路径 → 违约过程 → 现金流 → 收益指标.
// 运行是原子的：任一阶段失败都不会返回部分结果.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/creditpool/algorithm/finance"
	"github.com/wyfcoding/creditpool/algorithm/sim"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/credit"
	"github.com/wyfcoding/creditpool/logging"
	"github.com/wyfcoding/creditpool/metrics"
	"github.com/wyfcoding/creditpool/tracing"
)

// Engine 无状态的运行编排器，可并发调用 Run.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.SimulationMetrics
	workers int
}

// Option 配置 Engine.
type Option func(*Engine)

// WithLogger 指定日志记录器.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.Logger
		}
	}
}

// WithMetrics 指定指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m.Simulation
		}
	}
}

// WithWorkers 覆盖配置中的并发度，n <= 0 时沿用配置.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New 创建 Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.Default().Logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run 使用默认 Engine 执行一次运行.
func Run(cfg config.Simulation, paths int) (*Result, error) {
	return New().Run(context.Background(), cfg, paths)
}

// Run 执行一次完整运行. cfg 按值传入，运行期间不会被修改.
func (e *Engine) Run(ctx context.Context, cfg config.Simulation, paths int) (res *Result, err error) {
	start := time.Now()
	variant := cfg.Variant()
	ctx, span := tracing.StartRun(ctx, variant, paths)
	defer span.End()
	defer func() {
		e.metrics.ObserveRun(variant, paths, time.Since(start), err)
		if err != nil {
			tracing.SetError(ctx, err)
			e.logger.ErrorContext(ctx, "simulation run failed", "variant", variant, "paths", paths, "error", err)
		}
	}()

	if err := config.ValidatePaths(paths); err != nil {
		return nil, err
	}
	cfg.MonteCarlo.Paths = paths
	if e.workers > 0 {
		cfg.MonteCarlo.Workers = e.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res = &Result{
		RunID:   uuid.NewString(),
		Variant: variant,
		Paths:   paths,
		Config:  cfg,
	}
	tracing.AddTag(ctx, string(tracing.AttrRunID), res.RunID)
	logger := e.logger.With("run_id", res.RunID, "variant", variant)
	logger.DebugContext(ctx, "simulation run started", "config", cfg.String())

	// 利率与抵押物互不依赖，并行生成.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.stage(gctx, logger, res.RunID, "rates", func() (err error) {
			res.ForwardRates, err = sim.GenerateForwardRates(cfg, paths)
			if err == nil {
				res.DiscountFactors = sim.DiscountFactors(res.ForwardRates, cfg)
			}
			return err
		})
	})
	g.Go(func() error {
		return e.stage(gctx, logger, res.RunID, "collateral", func() (err error) {
			res.Collateral, err = sim.GenerateCollateral(cfg, paths)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var defaults *credit.Defaults
	if err := e.stage(ctx, logger, res.RunID, "defaults", func() (err error) {
		defaults, err = credit.SimulateDefaults(res.Collateral, cfg)
		return err
	}); err != nil {
		return nil, err
	}
	res.DefaultIndicator = defaults.Indicator
	res.DefaultTimes = defaults.Times
	res.DefaultRate = defaults.Rate()

	if err := e.stage(ctx, logger, res.RunID, "cashflows", func() (err error) {
		res.PoolCashFlows, err = credit.GeneratePoolCashFlows(res.Collateral, defaults, cfg)
		if err != nil || !cfg.Capital.Enabled {
			return err
		}
		res.Stakeholders, err = credit.GenerateStakeholderCashFlows(res.PoolCashFlows, res.Collateral, defaults, cfg)
		return err
	}); err != nil {
		return nil, err
	}

	var nonConverged, clampedLower, clampedUpper int
	if err := e.stage(ctx, logger, res.RunID, "metrics", func() error {
		var err error
		nonConverged, clampedLower, clampedUpper, err = computeMetrics(res, cfg)
		return err
	}); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	tracing.AddTag(ctx, string(tracing.AttrDefaultRate), res.DefaultRate)
	e.metrics.ObserveOutcome(variant, res.DefaultRate, clampedLower, clampedUpper)
	if nonConverged > 0 {
		logger.WarnContext(ctx, "irr solver did not converge on some paths",
			"paths", nonConverged, "clamped_lower", clampedLower, "clamped_upper", clampedUpper)
	}
	logger.InfoContext(ctx, "simulation run finished",
		"paths", paths,
		"default_rate", res.DefaultRate,
		"duration", res.Duration,
	)
	return res, nil
}

// stage 为单个阶段包装 Span、耗时日志与指标. 阶段开始前检查 ctx.
func (e *Engine) stage(ctx context.Context, logger *slog.Logger, runID, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	ctx, span := tracing.StartStage(ctx, name, runID)
	defer span.End()

	start := time.Now()
	done := logging.LogDuration(ctx, logger, name)
	err := fn()
	done()
	e.metrics.ObserveStage(name, time.Since(start))

	if err != nil {
		tracing.SetError(ctx, err)
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

// computeMetrics 逐路径计算 IRR / NPV，返回未收敛与触及上下界的路径数.
func computeMetrics(res *Result, cfg config.Simulation) (nonConverged, lower, upper int, err error) {
	paths := res.Paths
	cols := cfg.NumSteps() + 1
	times := finance.YearFractions(cols, cfg.DT())

	res.IRR = make([]float64, paths)
	res.NPV = make([]float64, paths)
	res.IRRClamped = make([]bool, paths)
	converged := make([]bool, paths)
	npvErrs := make([]error, paths)
	if res.Stakeholders != nil {
		res.SponsorIRR = make([]float64, paths)
	}

	sim.ForEachLane(paths, cfg.MonteCarlo.Workers, func(p int) {
		cf := investorFlows(cfg, res.PoolCashFlows, res.Stakeholders, p)
		irr := finance.IRR(cf, times)
		res.IRR[p] = irr.Rate
		res.IRRClamped[p] = irr.Clamped
		converged[p] = irr.Converged || irr.Clamped
		res.NPV[p], npvErrs[p] = finance.NPV(cf, res.DiscountFactors.Row(p))

		if res.Stakeholders != nil {
			res.SponsorIRR[p] = finance.IRRRate(res.Stakeholders.Sponsor.Row(p), times)
		}
	})

	for p := range paths {
		if npvErrs[p] != nil {
			return 0, 0, 0, npvErrs[p]
		}
		if !converged[p] {
			nonConverged++
		}
		if res.IRRClamped[p] {
			if res.IRR[p] == finance.IRRLowerBound {
				lower++
			} else {
				upper++
			}
		}
	}
	return nonConverged, lower, upper, nil
}
