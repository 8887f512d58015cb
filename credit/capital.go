package credit

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/creditpool/algorithm/finance"
	"github.com/wyfcoding/creditpool/algorithm/sim"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/xerrors"
)

// StakeholderFlows 扩展资本结构下三方的现金流，均为 [paths, steps+1].
// 第 0 步为各方出资 (投资人 -D，发起人 -E，管理人 0).
type StakeholderFlows struct {
	Investor *sim.Grid[float64] `json:"investor"`
	Manager  *sim.Grid[float64] `json:"manager"`
	Sponsor  *sim.Grid[float64] `json:"sponsor"`

	// 每条路径退出时的分配记录与实收管理费.
	Allocations    []finance.Allocation `json:"allocations"`
	ManagementFees []decimal.Decimal    `json:"management_fees"`
	ExitProceeds   []decimal.Decimal    `json:"exit_proceeds"`

	DebtCapital   float64 `json:"debt_capital"`
	EquityCapital float64 `json:"equity_capital"`
	ExitStep      int     `json:"exit_step"`
}

// GenerateStakeholderCashFlows 在资金池现金流之上叠加投资人债权 / 发起人股权 / 管理人结构.
//
// 退出前：池内现金流在整年边界支付投资人利息 (D × investor_rate)，不足部分累计为欠息，
// 盈余进入储备. 退出时：收益 = 存续项目抵押物价值 + 储备；先扣管理费 (以收益为上限)，
// 余额经 finance.Allocate 分层分配. 退出后的贷款现金流不计入.
func GenerateStakeholderCashFlows(pool *sim.Grid[float64], collateral *sim.Tensor[float64], defaults *Defaults, cfg config.Simulation) (*StakeholderFlows, error) {
	if err := checkCollateral(collateral, cfg); err != nil {
		return nil, err
	}
	if err := checkDefaults(defaults, collateral); err != nil {
		return nil, err
	}
	if pool == nil || pool.Rows != collateral.Paths || pool.Cols != collateral.Times {
		return nil, xerrors.ErrShapeMismatch.WithDetail("pool cash flows do not match collateral shape")
	}

	paths := collateral.Paths
	cols := cfg.NumSteps() + 1
	exit := cfg.ExitStep()
	capital := cfg.Capital
	corpus := decimal.NewFromFloat(cfg.Pool.TotalCorpus)
	debt := corpus.Mul(decimal.NewFromFloat(capital.DebtShare))
	equity := corpus.Sub(debt)
	interestDue := debt.Mul(decimal.NewFromFloat(capital.InvestorRate))
	holdingYears := decimal.NewFromFloat(float64(exit) * cfg.DT())
	fee := corpus.Mul(decimal.NewFromFloat(capital.ManagementFeeRate)).Mul(holdingYears)
	split := decimal.NewFromFloat(capital.ProfitSplit)

	out := &StakeholderFlows{
		Investor:       sim.NewGrid[float64](paths, cols),
		Manager:        sim.NewGrid[float64](paths, cols),
		Sponsor:        sim.NewGrid[float64](paths, cols),
		Allocations:    make([]finance.Allocation, paths),
		ManagementFees: make([]decimal.Decimal, paths),
		ExitProceeds:   make([]decimal.Decimal, paths),
		DebtCapital:    debt.InexactFloat64(),
		EquityCapital:  equity.InexactFloat64(),
		ExitStep:       exit,
	}

	err := sim.ForEachLaneErr(paths, cfg.MonteCarlo.Workers, func(p int) error {
		inv, mgr, spo := out.Investor.Row(p), out.Manager.Row(p), out.Sponsor.Row(p)
		inv[0] = -out.DebtCapital
		spo[0] = -out.EquityCapital

		reserve, owed := decimal.Zero, decimal.Zero
		for s := 1; s <= exit; s++ {
			inflow, err := toDecimal(pool.At(p, s))
			if err != nil {
				return err.WithDetail("pool cash flow at path %d step %d is %v", p, s, pool.At(p, s))
			}
			reserve = reserve.Add(inflow)
			if !cfg.IsAnnualBoundary(s) {
				continue
			}
			due := owed.Add(interestDue)
			paid := decimal.Min(reserve, due)
			inv[s] += paid.InexactFloat64()
			reserve = reserve.Sub(paid)
			owed = due.Sub(paid)
		}

		surviving := survivingCollateral(collateral, defaults, cfg, p, exit)
		residual, err := toDecimal(surviving)
		if err != nil {
			return err.WithDetail("surviving collateral at path %d is %v", p, surviving)
		}
		proceeds := reserve.Add(residual)
		feePaid := decimal.Min(fee, proceeds)
		alloc := finance.Allocate(finance.WaterfallInput{
			Proceeds:      proceeds.Sub(feePaid),
			DebtPrincipal: debt,
			DebtInterest:  owed,
			Equity:        equity,
			ProfitSplit:   split,
		})

		inv[exit] += alloc.ToDebt().InexactFloat64()
		spo[exit] += alloc.ToSponsor().InexactFloat64()
		mgr[exit] += feePaid.Add(alloc.ToManager()).InexactFloat64()

		out.Allocations[p] = alloc
		out.ManagementFees[p] = feePaid
		out.ExitProceeds[p] = proceeds
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// toDecimal 拒绝 Inf / NaN，decimal 无法表示它们.
func toDecimal(v float64) (decimal.Decimal, *xerrors.Error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return decimal.Zero, xerrors.ErrNonFinite.WithField("collateral.initial_value")
	}
	return decimal.NewFromFloat(v), nil
}

// survivingCollateral 退出时仍在存续的贷款对应的抵押物价值之和.
// 已违约或已于退出前 (含退出当步) 到期的贷款不计入，其现金流已进入储备.
func survivingCollateral(c *sim.Tensor[float64], d *Defaults, cfg config.Simulation, path, exit int) float64 {
	if cfg.MaturityStep() <= exit {
		return 0
	}
	var sum float64
	for j, v := range c.Row(path, exit) {
		if d.Times.At(path, j) > exit {
			sum += v
		}
	}
	return sum
}
