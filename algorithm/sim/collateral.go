package sim

import (
	"math"

	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/xerrors"
)

// GenerateCollateral 生成 [paths, steps+1, projects] 的抵押物价值路径.
// 总方差按 SystemicShare / IdiosyncraticShare 拆分：系统性冲击每条路径每步一个，
// 所有项目共享；特质冲击每个项目独立.
func GenerateCollateral(cfg config.Simulation, paths int) (*Tensor[float64], error) {
	if err := config.ValidatePaths(paths); err != nil {
		return nil, err
	}

	steps := cfg.NumSteps()
	projects := cfg.Pool.NumProjects
	dt := cfg.DT()
	c := cfg.Collateral
	sigma := c.Volatility
	drift := (c.Drift - 0.5*sigma*sigma) * dt
	sysVol := sigma * math.Sqrt(c.SystemicShare) * math.Sqrt(dt)
	idioVol := sigma * math.Sqrt(c.IdiosyncraticShare) * math.Sqrt(dt)

	out := NewTensor[float64](paths, steps+1, projects)
	err := ForEachLaneErr(paths, cfg.MonteCarlo.Workers, func(p int) error {
		rng := Stream(cfg.MonteCarlo.Seed, StageCollateral, p)

		first := out.Row(p, 0)
		for j := range first {
			first[j] = c.InitialValue
		}
		for s := 1; s <= steps; s++ {
			zSys := rng.NormFloat64()
			prev, cur := out.Row(p, s-1), out.Row(p, s)
			for j := range cur {
				zIdio := rng.NormFloat64()
				cur[j] = prev[j] * math.Exp(drift+sysVol*zSys+idioVol*zIdio)
				if math.IsInf(cur[j], 0) {
					return xerrors.ErrNonFinite.WithField("collateral.initial_value").
						WithDetail("collateral overflowed at path %d step %d project %d", p, s, j)
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
