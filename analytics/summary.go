// Package analytics 将一次运行的逐路径结果汇总为报告统计量.
// 所有统计在空输入时回落为 0，不会向报告泄漏 NaN.
package analytics

import (
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/wyfcoding/creditpool/engine"
)

// Distribution 一组逐路径结果的描述统计.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	P5     float64 `json:"p5"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
}

// IRRBuckets 投资人 IRR 落入各区间的概率.
type IRRBuckets struct {
	Below10    float64 `json:"below_10"`
	From10To14 float64 `json:"from_10_to_14"`
	From14To16 float64 `json:"from_14_to_16"`
	Above16    float64 `json:"above_16"`
}

// YearFlow 单个投资人在某一年末的现金流期望与标准差.
type YearFlow struct {
	Year     int     `json:"year"`
	Expected float64 `json:"expected"`
	Std      float64 `json:"std"`
}

// Summary 一次运行的汇总报告.
type Summary struct {
	RunID   string `json:"run_id"`
	Variant string `json:"variant"`
	Paths   int    `json:"paths"`

	IRR        Distribution  `json:"irr"`
	NPV        Distribution  `json:"npv"`
	SponsorIRR *Distribution `json:"sponsor_irr,omitempty"`

	ProbabilityOfLoss float64    `json:"probability_of_loss"`
	Buckets           IRRBuckets `json:"irr_buckets"`
	AnnualCashFlows   []YearFlow `json:"annual_cash_flows"`

	DefaultRate             float64 `json:"default_rate"`
	ClampedPaths            int     `json:"clamped_paths"`
	MeanIRRExcludingClamped float64 `json:"mean_irr_excluding_clamped"`
}

// Summarize 汇总运行结果.
func Summarize(res *engine.Result) Summary {
	s := Summary{
		RunID:       res.RunID,
		Variant:     res.Variant,
		Paths:       res.Paths,
		IRR:         Describe(res.IRR),
		NPV:         Describe(res.NPV),
		DefaultRate: res.DefaultRate,
	}
	if res.SponsorIRR != nil {
		d := Describe(res.SponsorIRR)
		s.SponsorIRR = &d
	}

	s.ProbabilityOfLoss = Fraction(res.NPV, func(v float64) bool { return v < 0 })
	s.Buckets = IRRBuckets{
		Below10:    Fraction(res.IRR, func(v float64) bool { return v < 0.10 }),
		From10To14: Fraction(res.IRR, func(v float64) bool { return v >= 0.10 && v < 0.14 }),
		From14To16: Fraction(res.IRR, func(v float64) bool { return v >= 0.14 && v < 0.16 }),
		Above16:    Fraction(res.IRR, func(v float64) bool { return v >= 0.16 }),
	}

	kept := make([]float64, 0, len(res.IRR))
	for p, v := range res.IRR {
		if p < len(res.IRRClamped) && res.IRRClamped[p] {
			s.ClampedPaths++
			continue
		}
		kept = append(kept, v)
	}
	s.MeanIRRExcludingClamped = SafeMean(kept)
	s.AnnualCashFlows = annualFlows(res)
	return s
}

func annualFlows(res *engine.Result) []YearFlow {
	cfg := res.Config
	years := cfg.Grid.HorizonYears
	cols := make([][]float64, years)
	for y := range cols {
		cols[y] = make([]float64, res.Paths)
	}
	for p := range res.Paths {
		flows := res.InvestorCashFlows(p)
		for y := range cols {
			cols[y][p] = flows[(y+1)*cfg.Grid.StepsPerYear]
		}
	}

	out := make([]YearFlow, 0, years)
	for y, col := range cols {
		out = append(out, YearFlow{Year: y + 1, Expected: SafeMean(col), Std: safe(stats.StandardDeviationPopulation(col))})
	}
	return out
}

// Describe 计算均值、中位数、总体标准差与分位数.
func Describe(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	return Distribution{
		Mean:   SafeMean(xs),
		Median: safe(stats.Median(xs)),
		Std:    safe(stats.StandardDeviationPopulation(xs)),
		P5:     percentile(xs, 5),
		P25:    percentile(xs, 25),
		P50:    percentile(xs, 50),
		P75:    percentile(xs, 75),
		P95:    percentile(xs, 95),
	}
}

// percentile 线性插值分位数: 取排序后第 (n-1)·p/100 个位置，位于两点之间时按距离插值.
// p=50 时与 Median 一致.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Sorted(slices.Values(xs))
	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return safe(sorted[len(sorted)-1], nil)
	}
	return safe(sorted[lo]+(h-float64(lo))*(sorted[lo+1]-sorted[lo]), nil)
}

// SafeMean 空输入返回 0.
func SafeMean(xs []float64) float64 {
	return safe(stats.Mean(xs))
}

// Fraction 满足条件的比例，空输入返回 0.
func Fraction(xs []float64, pred func(float64) bool) float64 {
	if len(xs) == 0 {
		return 0
	}
	var n int
	for _, v := range xs {
		if pred(v) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}

func safe(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
