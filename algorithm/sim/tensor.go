// Package sim 提供蒙特卡洛路径生成：远期利率期限结构、折现因子与两因子抵押物价值.
package sim

// Tensor 是按 (path, time, entity) 索引的三维数组，行主序连续存储.
// Times 包含起点，即 NumSteps+1；entity 对利率是期限，对抵押物是项目.
type Tensor[T any] struct {
	Data  []T `json:"data"`
	Paths int `json:"paths"`
	Times int `json:"times"`
	Width int `json:"width"`
}

// NewTensor 分配一个零值张量.
func NewTensor[T any](paths, times, width int) *Tensor[T] {
	return &Tensor[T]{
		Data:  make([]T, paths*times*width),
		Paths: paths,
		Times: times,
		Width: width,
	}
}

func (t *Tensor[T]) offset(path, time, entity int) int {
	return (path*t.Times+time)*t.Width + entity
}

// At 读取 (path, time, entity).
func (t *Tensor[T]) At(path, time, entity int) T {
	return t.Data[t.offset(path, time, entity)]
}

// Set 写入 (path, time, entity).
func (t *Tensor[T]) Set(path, time, entity int, v T) {
	t.Data[t.offset(path, time, entity)] = v
}

// Row 返回 (path, time) 上所有实体的切片视图，写入会反映到张量.
func (t *Tensor[T]) Row(path, time int) []T {
	start := t.offset(path, time, 0)
	return t.Data[start : start+t.Width]
}

// Grid 是按 (path, column) 索引的二维数组.
type Grid[T any] struct {
	Data []T `json:"data"`
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// NewGrid 分配一个零值二维数组.
func NewGrid[T any](rows, cols int) *Grid[T] {
	return &Grid[T]{Data: make([]T, rows*cols), Rows: rows, Cols: cols}
}

// At 读取 (row, col).
func (g *Grid[T]) At(row, col int) T { return g.Data[row*g.Cols+col] }

// Set 写入 (row, col).
func (g *Grid[T]) Set(row, col int, v T) { g.Data[row*g.Cols+col] = v }

// Row 返回第 row 行的切片视图.
func (g *Grid[T]) Row(row int) []T { return g.Data[row*g.Cols : (row+1)*g.Cols] }
