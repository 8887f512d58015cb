package sim

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/creditpool/xerrors"
)

// lanesPerTask 每个任务至少处理的路径数，避免小任务调度开销.
const lanesPerTask = 16

// Workers 归一化并发度，0 或负数表示 GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ForEachLane 将 [0, n) 切分为连续区块并行执行 fn.
// fn 只能写入属于自己 lane 的数据，panic 会在所有任务结束后重新抛出.
func ForEachLane(n, workers int, fn func(lane int)) {
	if n <= 0 {
		return
	}
	workers = Workers(workers)
	if workers == 1 || n <= lanesPerTask {
		for i := range n {
			fn(i)
		}
		return
	}

	chunk := max((n+workers*4-1)/(workers*4), lanesPerTask)
	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		p.Go(func() {
			for i := start; i < end; i++ {
				fn(i)
			}
		})
	}
	p.Wait()
}

// ForEachLaneErr 与 ForEachLane 相同，但 lane 可以返回错误.
// lane 内的 panic 转为 ErrStageFailed. 多个 lane 失败时返回编号最小的错误，与调度顺序无关.
func ForEachLaneErr(n, workers int, fn func(lane int) error) error {
	if n <= 0 {
		return nil
	}
	errs := make([]error, n)
	ForEachLane(n, workers, func(lane int) {
		defer func() {
			if r := recover(); r != nil {
				errs[lane] = xerrors.ErrStageFailed.WithDetail("lane %d panicked: %v", lane, r)
			}
		}()
		errs[lane] = fn(lane)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
