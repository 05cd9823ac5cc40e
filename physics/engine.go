package physics

import (
	"fmt"

	"go.uber.org/zap"
)

// Config 几何容差与越界修正参数（与地图单位相关，单位变化时需要重新调整）
type Config struct {
	// SegmentTolerance 点在线段上的绝对容差：|d(p,v0)+d(p,v1)-len| <= SegmentTolerance
	SegmentTolerance float64 `yaml:"segment_tolerance" json:"segmentTolerance"`
	// BoundaryTolerance 越界二分收敛的位置精度
	BoundaryTolerance float64 `yaml:"boundary_tolerance" json:"boundaryTolerance"`
	// MaxBoundaryIterations 二分迭代上限
	MaxBoundaryIterations int `yaml:"max_boundary_iterations" json:"maxBoundaryIterations"`
}

const (
	DefaultSegmentTolerance      = 0.1
	DefaultBoundaryTolerance     = 1e-3
	DefaultMaxBoundaryIterations = 64
)

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		SegmentTolerance:      DefaultSegmentTolerance,
		BoundaryTolerance:     DefaultBoundaryTolerance,
		MaxBoundaryIterations: DefaultMaxBoundaryIterations,
	}
}

// WithDefaults 对未设置（<=0）的字段填默认值
func (c Config) WithDefaults() Config {
	if c.SegmentTolerance <= 0 {
		c.SegmentTolerance = DefaultSegmentTolerance
	}
	if c.BoundaryTolerance <= 0 {
		c.BoundaryTolerance = DefaultBoundaryTolerance
	}
	if c.MaxBoundaryIterations <= 0 {
		c.MaxBoundaryIterations = DefaultMaxBoundaryIterations
	}
	return c
}

// Engine 只持有不可变配置与日志，没有跨调用的状态，可并发使用
type Engine struct {
	cfg Config
	log *zap.Logger
}

type Option func(*Engine)

// WithLogger 设置调试日志（默认不输出）
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine 创建物理引擎
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg.WithDefaults(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) String() string {
	return fmt.Sprintf("physics.Engine{segTol=%g boundTol=%g maxIter=%d}",
		e.cfg.SegmentTolerance, e.cfg.BoundaryTolerance, e.cfg.MaxBoundaryIterations)
}
