// Package finance 提供收益指标 (IRR / NPV) 与退出收益的分层分配.
package finance

import "math"

const (
	// IRRLowerBound 与 IRRUpperBound 是每次迭代后的钳制区间.
	// 落在边界上的结果表示现金流形态异常 (如全零或全损)，不是真实收益.
	IRRLowerBound = -0.99
	IRRUpperBound = 5.0

	irrGuess         = 0.10
	irrMaxIterations = 100
	irrTolerance     = 1e-6
	irrMinDerivative = 1e-10
)

// IRRResult 牛顿迭代求解结果.
type IRRResult struct {
	Rate       float64 `json:"rate"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Clamped    bool    `json:"clamped"`
}

// YearFractions 返回 n 个时间点 0, dt, 2dt, ... (年).
func YearFractions(n int, dt float64) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * dt
	}
	return times
}

// IRR 以牛顿法求解 Σ CF_t / (1+r)^t = 0.
// 初值 10%，最多 100 次迭代，|Δr| < 1e-6 或导数接近 0 时提前结束.
// 未收敛时返回最后一次迭代值，不视为错误.
// times 为 nil 时按整数年处理；长度不足的部分同样按下标补齐.
func IRR(cashFlows, times []float64) IRRResult {
	at := func(i int) float64 {
		if i < len(times) {
			return times[i]
		}
		return float64(i)
	}

	var hasPos, hasNeg bool
	for _, cf := range cashFlows {
		hasPos = hasPos || cf > 0
		hasNeg = hasNeg || cf < 0
	}
	// 无符号变化则无根.
	if !hasPos {
		return IRRResult{Rate: IRRLowerBound, Clamped: true}
	}
	if !hasNeg {
		return IRRResult{Rate: IRRUpperBound, Clamped: true}
	}

	r := irrGuess
	res := IRRResult{Rate: r}
	for i := range irrMaxIterations {
		res.Iterations = i + 1

		var npv, deriv float64
		for k, cf := range cashFlows {
			t := at(k)
			growth := math.Pow(1+r, t)
			npv += cf / growth
			deriv -= t * cf / (growth * (1 + r))
		}
		if math.Abs(deriv) < irrMinDerivative {
			break
		}

		next := clampRate(r - npv/deriv)
		if math.Abs(next-r) < irrTolerance {
			r = next
			res.Converged = true
			break
		}
		r = next
	}

	res.Rate = r
	res.Clamped = r == IRRLowerBound || r == IRRUpperBound
	return res
}

// IRRRate 只返回收益率.
func IRRRate(cashFlows, times []float64) float64 {
	return IRR(cashFlows, times).Rate
}

func clampRate(r float64) float64 {
	switch {
	case math.IsNaN(r):
		return IRRLowerBound
	case r < IRRLowerBound:
		return IRRLowerBound
	case r > IRRUpperBound:
		return IRRUpperBound
	default:
		return r
	}
}
