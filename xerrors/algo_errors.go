package xerrors

var (
	// ErrInvalidConfig 模拟配置非法。
	ErrInvalidConfig = New(ErrInvalidArg, 400101, "invalid simulation config", "", nil)
	// ErrInvalidPathCount 蒙特卡洛路径数必须为正。
	ErrInvalidPathCount = New(ErrInvalidArg, 400102, "invalid path count", "path count must be positive", nil)
	// ErrDimMismatch 维度不匹配.
	ErrDimMismatch = New(ErrInvalidArg, 400103, "dimension mismatch", "matrix or vector dimensions do not match", nil)
	// ErrNotSquare 不是方阵.
	ErrNotSquare = New(ErrInvalidArg, 400104, "matrix must be square", "input matrix is not square", nil)
	// ErrNotPositiveDefinite 不是正定矩阵.
	ErrNotPositiveDefinite = New(ErrInvalidArg, 400105, "matrix is not positive definite", "input matrix must be positive definite", nil)
	// ErrShapeMismatch 阶段之间的张量形状不一致。
	ErrShapeMismatch = New(ErrInvalidArg, 400106, "tensor shape mismatch", "stage inputs disagree on paths, steps or projects", nil)
	// ErrNonFinite 计算过程中出现 Inf 或 NaN，通常由极端参数导致溢出。
	ErrNonFinite = New(ErrInvalidArg, 400108, "non-finite value", "simulated value overflowed to Inf or NaN", nil)
	// ErrStageFailed 模拟阶段执行失败。
	ErrStageFailed = New(ErrInternal, 500101, "simulation stage failed", "", nil)
)
