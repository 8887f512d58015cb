package sim

import (
	"math"

	linalg "github.com/wyfcoding/creditpool/algorithm/math"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/xerrors"
)

// RateFloor 远期利率下限.
const RateFloor = 0.005

// GenerateForwardRates 生成 [paths, steps+1, tenors] 的远期利率曲面.
// 各期限以 rho^|i-j| 相关的对数正态过程演化，每步后截断到 RateFloor.
func GenerateForwardRates(cfg config.Simulation, paths int) (*Tensor[float64], error) {
	if err := config.ValidatePaths(paths); err != nil {
		return nil, err
	}

	steps := cfg.NumSteps()
	tenors := cfg.NumTenors()
	corr := linalg.ExpDecayCorrelation(tenors, cfg.Rates.Correlation)
	chol, err := corr.Cholesky()
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "tenor correlation not factorable").
			WithField("rates.correlation")
	}

	dt := cfg.DT()
	sigma := cfg.Rates.Volatility
	drift := (cfg.Rates.Drift - 0.5*sigma*sigma) * dt
	diffusion := sigma * math.Sqrt(dt)
	initial := cfg.Rates.InitialRate

	out := NewTensor[float64](paths, steps+1, tenors)
	err = ForEachLaneErr(paths, cfg.MonteCarlo.Workers, func(p int) error {
		rng := Stream(cfg.MonteCarlo.Seed, StageRates, p)
		z := make([]float64, tenors)
		shock := make([]float64, tenors)

		first := out.Row(p, 0)
		for i := range first {
			first[i] = initial
		}
		for s := 1; s <= steps; s++ {
			for i := range z {
				z[i] = rng.NormFloat64()
			}
			if err := chol.MulLowerInto(shock, z); err != nil {
				return err
			}

			prev, cur := out.Row(p, s-1), out.Row(p, s)
			for i := range cur {
				cur[i] = math.Max(prev[i]*math.Exp(drift+diffusion*shock[i]), RateFloor)
				if math.IsInf(cur[i], 0) {
					return xerrors.ErrNonFinite.WithField("rates.drift").
						WithDetail("forward rate overflowed at path %d step %d", p, s)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DiscountFactors 沿对角期限 min(step, tenors-1) 累积折现，返回 [paths, steps+1].
// DF(0)=1，DF(t)=DF(t-1)·exp(-r(t)·dt).
func DiscountFactors(rates *Tensor[float64], cfg config.Simulation) *Grid[float64] {
	dt := cfg.DT()
	df := NewGrid[float64](rates.Paths, rates.Times)
	ForEachLane(rates.Paths, cfg.MonteCarlo.Workers, func(p int) {
		row := df.Row(p)
		row[0] = 1
		for s := 1; s < rates.Times; s++ {
			tenor := min(s, rates.Width-1)
			row[s] = row[s-1] * math.Exp(-rates.At(p, s, tenor)*dt)
		}
	})
	return df
}
