package physics

import "fmt"

// Position 二维坐标
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add 返回 p + d·scale
func (p Position) Add(d Direction, scale float64) Position {
	return Position{X: p.X + d.X*scale, Y: p.Y + d.Y*scale}
}

// Lerp 在 p→q 上按 t 插值
func (p Position) Lerp(q Position, t float64) Position {
	return Position{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Direction 单位方向向量（作为方向使用时模长应≈1）
type Direction struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Category 实体类别
type Category uint8

const (
	CategoryPlayer Category = iota
	CategoryObstacle
	CategoryProjectile
	CategoryZone
)

func (c Category) String() string {
	switch c {
	case CategoryPlayer:
		return "player"
	case CategoryObstacle:
		return "obstacle"
	case CategoryProjectile:
		return "projectile"
	case CategoryZone:
		return "zone"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Shape 封闭的形状种类枚举，碰撞分派基于它而非动态类型
type Shape uint8

const (
	ShapePoint Shape = iota
	ShapeCircle
	ShapeSegment
	ShapePolygon
)

func (s Shape) String() string {
	switch s {
	case ShapePoint:
		return "point"
	case ShapeCircle:
		return "circle"
	case ShapeSegment:
		return "segment"
	case ShapePolygon:
		return "polygon"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Entity 物理快照中的实体
//
// Position 是圆心/点坐标；线段与多边形直接使用 Vertices。
// 多边形隐式闭合（最后一个顶点连回第一个）。
type Entity struct {
	ID       uint64
	Category Category
	Shape    Shape
	Position Position
	Radius   float64
	Vertices []Position

	Direction Direction
	Speed     float64
	IsMoving  bool
}

func NewPoint(id uint64, pos Position) Entity {
	return Entity{ID: id, Shape: ShapePoint, Position: pos}
}

func NewCircle(id uint64, center Position, radius float64) Entity {
	return Entity{ID: id, Shape: ShapeCircle, Position: center, Radius: radius}
}

func NewSegment(id uint64, a, b Position) Entity {
	return Entity{ID: id, Shape: ShapeSegment, Vertices: []Position{a, b}}
}

// NewPolygon 复制顶点列表，调用方后续修改不会影响实体
func NewPolygon(id uint64, vertices ...Position) Entity {
	vs := make([]Position, len(vertices))
	copy(vs, vertices)
	return Entity{ID: id, Shape: ShapePolygon, Vertices: vs}
}

// Validate 检查形状不变量
func (e Entity) Validate() error {
	switch e.Shape {
	case ShapePoint:
		return nil
	case ShapeCircle:
		if e.Radius < 0 {
			return fmt.Errorf("entity %d: negative radius %v: %w", e.ID, e.Radius, ErrDegenerateGeometry)
		}
	case ShapeSegment:
		if len(e.Vertices) != 2 {
			return fmt.Errorf("entity %d: segment needs 2 vertices, got %d: %w", e.ID, len(e.Vertices), ErrDegenerateGeometry)
		}
	case ShapePolygon:
		if len(e.Vertices) < 3 {
			return fmt.Errorf("entity %d: polygon needs at least 3 vertices, got %d: %w", e.ID, len(e.Vertices), ErrDegenerateGeometry)
		}
	default:
		return fmt.Errorf("entity %d: %s: %w", e.ID, e.Shape, ErrUnsupportedShape)
	}
	return nil
}

// clone 深拷贝顶点，保证返回的快照与输入互不影响
func (e Entity) clone() Entity {
	if e.Vertices != nil {
		vs := make([]Position, len(e.Vertices))
		copy(vs, e.Vertices)
		e.Vertices = vs
	}
	return e
}
