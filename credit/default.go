// Package credit 实现贷款层面的状态演化：覆盖率驱动的违约过程、违约回收与现金流生成.
package credit

import (
	"github.com/wyfcoding/creditpool/algorithm/sim"
	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/xerrors"
)

// Lane 是单个 (path, project) 的违约状态. 违约是吸收态.
type Lane struct {
	Defaulted   bool
	DefaultStep int
}

// HazardRate 按覆盖率分层选择年化违约强度.
//
//	coverage >= T1       -> base
//	T2 <= coverage < T1  -> base × M1
//	coverage < T2        -> base × M2
func HazardRate(coverage float64, p config.DefaultConfig) float64 {
	switch {
	case coverage >= p.Threshold1:
		return p.BaseHazard
	case coverage >= p.Threshold2:
		return p.BaseHazard * p.Multiplier1
	default:
		return p.BaseHazard * p.Multiplier2
	}
}

// StepLane 推进一步. 已违约的 lane 原样返回，不再消耗风险判定.
// u 为 [0,1) 均匀随机数，u < hazard·dt 时在该步违约.
func StepLane(l Lane, step int, coverage, u float64, p config.DefaultConfig, dt float64) Lane {
	if l.Defaulted {
		return l
	}
	if u < HazardRate(coverage, p)*dt {
		return Lane{Defaulted: true, DefaultStep: step}
	}
	return l
}

// Defaults 违约过程的输出.
type Defaults struct {
	// Indicator [paths, steps+1, projects]，单调不减.
	Indicator *sim.Tensor[bool]
	// Times [paths, projects]，未违约记为 Sentinel.
	Times    *sim.Grid[int]
	Sentinel int
}

// Rate 已违约贷款数 ÷ (paths × projects).
func (d *Defaults) Rate() float64 {
	if d == nil || len(d.Times.Data) == 0 {
		return 0
	}
	var n int
	for _, t := range d.Times.Data {
		if t < d.Sentinel {
			n++
		}
	}
	return float64(n) / float64(len(d.Times.Data))
}

// SimulateDefaults 对每个 (path, project) 按时间顺序推进违约状态.
// 每个 lane 使用独立随机流，并行度不影响结果.
func SimulateDefaults(collateral *sim.Tensor[float64], cfg config.Simulation) (*Defaults, error) {
	if err := checkCollateral(collateral, cfg); err != nil {
		return nil, err
	}

	paths := collateral.Paths
	steps := cfg.NumSteps()
	projects := cfg.Pool.NumProjects
	loan := cfg.LoanPerProject()
	dt := cfg.DT()
	sentinel := steps + 1

	out := &Defaults{
		Indicator: sim.NewTensor[bool](paths, steps+1, projects),
		Times:     sim.NewGrid[int](paths, projects),
		Sentinel:  sentinel,
	}
	sim.ForEachLane(paths, cfg.MonteCarlo.Workers, func(p int) {
		for j := range projects {
			rng := sim.Stream(cfg.MonteCarlo.Seed, sim.StageDefaults, p, j)
			lane := Lane{DefaultStep: sentinel}
			for s := 1; s <= steps; s++ {
				if !lane.Defaulted {
					coverage := collateral.At(p, s, j) / loan
					lane = StepLane(lane, s, coverage, rng.Float64(), cfg.Default, dt)
				}
				out.Indicator.Set(p, s, j, lane.Defaulted)
			}
			out.Times.Set(p, j, lane.DefaultStep)
		}
	})
	return out, nil
}

func checkCollateral(c *sim.Tensor[float64], cfg config.Simulation) error {
	if c == nil || c.Paths <= 0 {
		return xerrors.ErrInvalidPathCount.WithField("monte_carlo.paths").WithDetail("empty collateral tensor")
	}
	if c.Times != cfg.NumSteps()+1 || c.Width != cfg.Pool.NumProjects {
		return xerrors.ErrShapeMismatch.WithDetail("collateral is [%d,%d,%d], want [%d,%d,%d]",
			c.Paths, c.Times, c.Width, c.Paths, cfg.NumSteps()+1, cfg.Pool.NumProjects)
	}
	return nil
}
