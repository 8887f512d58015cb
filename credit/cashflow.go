package credit

import (
	"github.com/wyfcoding/creditpool/algorithm/sim"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/xerrors"
)

// GeneratePoolCashFlows 汇总每条路径上所有贷款的现金流，返回 [paths, steps+1].
// 第 0 步保留给初始投资，始终为 0.
func GeneratePoolCashFlows(collateral *sim.Tensor[float64], defaults *Defaults, cfg config.Simulation) (*sim.Grid[float64], error) {
	if err := checkCollateral(collateral, cfg); err != nil {
		return nil, err
	}
	if err := checkDefaults(defaults, collateral); err != nil {
		return nil, err
	}

	paths := collateral.Paths
	projects := cfg.Pool.NumProjects
	out := sim.NewGrid[float64](paths, cfg.NumSteps()+1)
	sim.ForEachLane(paths, cfg.MonteCarlo.Workers, func(p int) {
		row := out.Row(p)
		for j := range projects {
			accrueLoan(row, defaults.Times.At(p, j), cfg, func(s int) float64 {
				return collateral.At(p, s, j)
			})
		}
	})
	return out, nil
}

// accrueLoan 将单笔贷款的现金流累加到 row.
// 违约前在整年边界收取票息；到期收回本金 (等额摊还时逐年收回)；
// 违约当步改为一次性回收并终止. 到期后的违约不影响现金流.
func accrueLoan(row []float64, defaultStep int, cfg config.Simulation, collateralAt func(step int) float64) {
	loan := cfg.LoanPerProject()
	coupon := cfg.Loan.Coupon
	maturity := cfg.MaturityStep()
	installment := loan / float64(cfg.Loan.MaturityYears)
	balance := loan

	for s := 1; s <= maturity; s++ {
		if s == defaultStep {
			row[s] += RecoveryValue(collateralAt(s), cfg.Recovery)
			return
		}
		if !cfg.IsAnnualBoundary(s) {
			continue
		}

		row[s] += balance * coupon
		switch {
		case s == maturity:
			row[s] += balance
			balance = 0
		case cfg.Loan.Amortizing:
			row[s] += installment
			balance -= installment
		}
	}
}

func checkDefaults(d *Defaults, c *sim.Tensor[float64]) error {
	if d == nil || d.Times == nil {
		return xerrors.ErrShapeMismatch.WithDetail("missing default times")
	}
	if d.Times.Rows != c.Paths || d.Times.Cols != c.Width {
		return xerrors.ErrShapeMismatch.WithDetail("default times are [%d,%d], collateral has %d paths × %d projects",
			d.Times.Rows, d.Times.Cols, c.Paths, c.Width)
	}
	return nil
}
