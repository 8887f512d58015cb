package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/creditpool/analytics"
	"github.com/wyfcoding/creditpool/cache"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/engine"
	"github.com/wyfcoding/creditpool/response"
	"github.com/wyfcoding/creditpool/xerrors"
)

// HeaderXCache 标记汇总结果是否来自缓存 (HIT / MISS).
const HeaderXCache = "X-Cache"

// Overrides 是仪表盘可调整的参数，缺省字段沿用服务端当前配置.
type Overrides struct {
	Paths           *int     `json:"paths"`
	Seed            *uint64  `json:"seed"`
	Coupon          *float64 `json:"coupon"`
	CollateralValue *float64 `json:"collateral_value"`
	CollateralDrift *float64 `json:"collateral_drift"`
	CollateralVol   *float64 `json:"collateral_volatility"`
	BaseHazard      *float64 `json:"base_hazard"`
	RecoveryRate    *float64 `json:"recovery_rate"`
	RateVol         *float64 `json:"rate_volatility"`
	Capital         *bool    `json:"capital"`
}

// Apply 返回叠加覆盖项后的配置副本，base 不会被修改. 取值合法性由 Simulation.Validate 校验.
func (o Overrides) Apply(base config.Simulation) config.Simulation {
	cfg := base
	set(&cfg.MonteCarlo.Paths, o.Paths)
	set(&cfg.MonteCarlo.Seed, o.Seed)
	set(&cfg.Loan.Coupon, o.Coupon)
	set(&cfg.Collateral.InitialValue, o.CollateralValue)
	set(&cfg.Collateral.Drift, o.CollateralDrift)
	set(&cfg.Collateral.Volatility, o.CollateralVol)
	set(&cfg.Default.BaseHazard, o.BaseHazard)
	set(&cfg.Recovery.Rate, o.RecoveryRate)
	set(&cfg.Rates.Volatility, o.RateVol)
	set(&cfg.Capital.Enabled, o.Capital)
	return cfg
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// SimulationHandler 处理模拟请求. 基准配置可在热更新时原子替换.
type SimulationHandler struct {
	engine   *engine.Engine
	base     atomic.Pointer[config.Simulation]
	maxPaths int
	results  *cache.Results[analytics.Summary]
	logger   *slog.Logger
}

// NewSimulationHandler 创建处理器. results 为 nil 时不缓存，maxPaths 为 0 时不限制.
func NewSimulationHandler(eng *engine.Engine, base config.Simulation, maxPaths int,
	results *cache.Results[analytics.Summary], logger *slog.Logger,
) *SimulationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &SimulationHandler{
		engine:   eng,
		maxPaths: maxPaths,
		results:  results,
		logger:   logger,
	}
	h.SetBase(base)
	return h
}

// SetBase 替换基准配置，只影响之后到达的请求.
func (h *SimulationHandler) SetBase(cfg config.Simulation) {
	h.base.Store(&cfg)
}

// Base 返回当前基准配置的副本.
func (h *SimulationHandler) Base() config.Simulation {
	return *h.base.Load()
}

// Register 注册模拟相关路由. guards 只作用于提交模拟的接口.
func (h *SimulationHandler) Register(r gin.IRouter, guards ...gin.HandlerFunc) {
	g := r.Group("/v1/simulations")
	g.POST("", append(guards, h.Run)...)
	g.GET("/defaults", h.Defaults)
}

// Defaults 返回当前基准配置.
func (h *SimulationHandler) Defaults(c *gin.Context) {
	response.Success(c, h.Base())
}

// Run 按覆盖项执行一次模拟并返回汇总. 请求体可为空.
func (h *SimulationHandler) Run(c *gin.Context) {
	var o Overrides
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&o); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, xerrors.InvalidArg("malformed request body").WithDetail("%v", err))
			return
		}
	}

	cfg := o.Apply(h.Base())
	paths := cfg.MonteCarlo.Paths
	if h.maxPaths > 0 && paths > h.maxPaths {
		response.Error(c, xerrors.ErrInvalidPathCount.WithField("monte_carlo.paths").
			WithDetail("%d paths exceeds the server limit of %d", paths, h.maxPaths))
		return
	}

	ctx := c.Request.Context()
	if h.results != nil {
		if summary, ok := h.results.Get(ctx, cfg); ok {
			c.Header(HeaderXCache, "HIT")
			response.Success(c, summary)
			return
		}
	}

	res, err := h.engine.Run(ctx, cfg, paths)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary := analytics.Summarize(res)
	if h.results != nil {
		h.results.Put(ctx, cfg, summary)
	}

	h.logger.InfoContext(ctx, "simulation served",
		"run_id", summary.RunID,
		"paths", paths,
		"mean_irr", summary.IRR.Mean,
	)
	c.Header(HeaderXCache, "MISS")
	response.SuccessWithStatus(c, http.StatusOK, summary)
}
