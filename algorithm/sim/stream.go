package sim

import "math/rand/v2"

// Stage 标识随机数消费阶段，不同阶段的流互不相关.
type Stage uint64

const (
	StageRates Stage = iota + 1
	StageCollateral
	StageDefaults
)

// String 返回阶段名称.
func (s Stage) String() string {
	switch s {
	case StageRates:
		return "rates"
	case StageCollateral:
		return "collateral"
	case StageDefaults:
		return "defaults"
	default:
		return "unknown"
	}
}

// splitmix64 混合函数，用于从 (stage, lane...) 派生互不重叠的流标识.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Stream 返回由 (seed, stage, lane...) 唯一确定的 PCG 随机流.
// 每条路径 (及每个项目) 使用独立的流，结果与调度顺序和并发度无关.
func Stream(seed uint64, stage Stage, lane ...int) *rand.Rand {
	h := splitmix64(uint64(stage))
	for _, l := range lane {
		h = splitmix64(h ^ uint64(l))
	}
	return rand.New(rand.NewPCG(seed, h))
}
