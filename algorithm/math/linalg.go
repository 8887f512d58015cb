// Package math 提供模拟所需的线性代数工具：相关矩阵构造与 Cholesky 分解.
package math

import (
	"math"

	"github.com/wyfcoding/creditpool/xerrors"
)

// Matrix 定义基础矩阵结构 (行主序).
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

// NewMatrix 创建一个 r x c 的零矩阵.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// Get 获取元素 (i, j).
func (m *Matrix) Get(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

// Set 设置元素 (i, j).
func (m *Matrix) Set(row, col int, val float64) {
	m.Data[row*m.Cols+col] = val
}

// ExpDecayCorrelation 构造 n 阶相关矩阵，C[i][j] = rho^|i-j|.
func ExpDecayCorrelation(n int, rho float64) *Matrix {
	m := NewMatrix(n, n)
	for i := range n {
		for j := range n {
			d := i - j
			if d < 0 {
				d = -d
			}
			m.Set(i, j, math.Pow(rho, float64(d)))
		}
	}
	return m
}

// Cholesky 分解: A = L * L^T，返回下三角 L.
func (m *Matrix) Cholesky() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, xerrors.ErrNotSquare
	}

	n := m.Rows
	res := NewMatrix(n, n)

	for i := range n {
		for j := range i + 1 {
			var sum float64
			for k := range j {
				sum += res.Get(i, k) * res.Get(j, k)
			}

			if i == j {
				val := m.Get(i, i) - sum
				if val <= 0 {
					return nil, xerrors.ErrNotPositiveDefinite
				}
				res.Set(i, j, math.Sqrt(val))
			} else {
				res.Set(i, j, (m.Get(i, j)-sum)/res.Get(j, j))
			}
		}
	}

	return res, nil
}

// MulLowerInto 计算 out = L * z，L 为下三角，跳过上三角的零元素.
// out 与 z 不得重叠.
func (m *Matrix) MulLowerInto(out, z []float64) error {
	if m.Rows != m.Cols || len(z) != m.Cols || len(out) != m.Rows {
		return xerrors.ErrDimMismatch
	}
	for i := range m.Rows {
		row := m.Data[i*m.Cols : i*m.Cols+i+1]
		var sum float64
		for k, l := range row {
			sum += l * z[k]
		}
		out[i] = sum
	}
	return nil
}
