package engine

import (
	"time"

	"github.com/wyfcoding/creditpool/algorithm/sim"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/credit"
)

// Result 是一次运行的全部输出. 所有数组在运行内新建，运行结束后归调用方所有.
type Result struct {
	RunID    string            `json:"run_id"`
	Variant  string            `json:"variant"`
	Paths    int               `json:"paths"`
	Config   config.Simulation `json:"config"`
	Duration time.Duration     `json:"duration"`

	// 每条路径的单个投资人 IRR / NPV.
	IRR        []float64 `json:"irr"`
	NPV        []float64 `json:"npv"`
	IRRClamped []bool    `json:"irr_clamped"`
	// SponsorIRR 仅在扩展资本结构下填充.
	SponsorIRR []float64 `json:"sponsor_irr,omitempty"`

	PoolCashFlows *sim.Grid[float64]       `json:"pool_cash_flows"`
	Stakeholders  *credit.StakeholderFlows `json:"stakeholders,omitempty"`

	ForwardRates     *sim.Tensor[float64] `json:"forward_rates"`
	DiscountFactors  *sim.Grid[float64]   `json:"discount_factors"`
	Collateral       *sim.Tensor[float64] `json:"collateral"`
	DefaultIndicator *sim.Tensor[bool]    `json:"default_indicator"`
	DefaultTimes     *sim.Grid[int]       `json:"default_times"`
	DefaultRate      float64              `json:"default_rate"`
}

// InvestorCashFlows 返回第 path 条路径上单个投资人的现金流，第 0 步为出资.
func (r *Result) InvestorCashFlows(path int) []float64 {
	return investorFlows(r.Config, r.PoolCashFlows, r.Stakeholders, path)
}

func investorFlows(cfg config.Simulation, pool *sim.Grid[float64], st *credit.StakeholderFlows, path int) []float64 {
	n := float64(cfg.Pool.NumInvestors)
	if st != nil {
		row := st.Investor.Row(path)
		out := make([]float64, len(row))
		for i, v := range row {
			out[i] = v / n
		}
		return out
	}

	row := pool.Row(path)
	out := make([]float64, len(row))
	out[0] = -cfg.InvestmentPerInvestor()
	for i := 1; i < len(row); i++ {
		out[i] = row[i] / n
	}
	return out
}
