package finance

import "github.com/wyfcoding/creditpool/xerrors"

// NPV 使用路径自身的折现因子计算 Σ CF_t · DF_t，无需迭代.
func NPV(cashFlows, discountFactors []float64) (float64, error) {
	if len(cashFlows) != len(discountFactors) {
		return 0, xerrors.ErrShapeMismatch.WithDetail(
			"cash flows have %d points, discount factors %d", len(cashFlows), len(discountFactors))
	}
	var npv float64
	for i, cf := range cashFlows {
		npv += cf * discountFactors[i]
	}
	return npv, nil
}
