package physics

import "errors"

// 物理核心的错误类型，调用方通过 errors.Is 判断
var (
	// ErrDegenerateGeometry 退化几何输入：零长度线段、零向量归一化、顶点不足的多边形
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrBoundaryResolutionFailed 越界修正无法在迭代预算内收敛到地图内
	ErrBoundaryResolutionFailed = errors.New("boundary resolution failed")
	// ErrUnsupportedShape 不支持的形状组合（例如多边形作为探针）
	ErrUnsupportedShape = errors.New("unsupported shape")
)
