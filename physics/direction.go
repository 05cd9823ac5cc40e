package physics

import (
	"fmt"
	"math"
)

// minVectorLength 低于此长度的向量视为零向量（浮点抵消后残留的误差）
const minVectorLength = 1e-9

// Normalize 归一化 (x, y)；零向量无法归一化，返回 ErrDegenerateGeometry
func Normalize(x, y float64) (Direction, error) {
	l := math.Hypot(x, y)
	if l < minVectorLength || math.IsNaN(l) || math.IsInf(l, 0) {
		return Direction{}, fmt.Errorf("normalize (%g,%g): %w", x, y, ErrDegenerateGeometry)
	}
	return Direction{X: x / l, Y: y / l}, nil
}

// DirectionFromPositions 从 a 指向 b 的单位方向
func DirectionFromPositions(a, b Position) (Direction, error) {
	d, err := Normalize(b.X-a.X, b.Y-a.Y)
	if err != nil {
		return Direction{}, fmt.Errorf("direction from (%g,%g) to itself: %w", a.X, a.Y, err)
	}
	return d, nil
}

// Angle 方向与 x 轴正方向的夹角（弧度）
func (d Direction) Angle() float64 {
	return math.Atan2(d.Y, d.X)
}

// Rotate 绕原点旋转（角度制，逆时针为正），结果恒为单位向量
func (d Direction) Rotate(degrees float64) Direction {
	a := d.Angle() + degrees*math.Pi/180
	return Direction{X: math.Cos(a), Y: math.Sin(a)}
}

// AddAngleToDirection 保留线上玩法依赖的旧行为：先得到旋转后的单位向量，
// 再与原方向相加后归一化。对单位输入，结果等价于只旋转 degrees/2。
// 旋转 180° 时两者相加为零向量，返回 ErrDegenerateGeometry。
// 需要真正旋转时用 Direction.Rotate。
func AddAngleToDirection(direction Direction, degrees float64) (Direction, error) {
	r := direction.Rotate(degrees)
	return Normalize(direction.X+r.X, direction.Y+r.Y)
}

// CalculateTriangleVertices 计算视野/攻击扇形的三角形：[起点, 顶点1, 顶点2]，
// 两条边分别为方向旋转 ±halfAngle 度、长度为 rng 的射线
func CalculateTriangleVertices(start Position, direction Direction, rng, halfAngle float64) ([]Position, error) {
	if _, err := Normalize(direction.X, direction.Y); err != nil {
		return nil, fmt.Errorf("triangle from (%g,%g): %w", start.X, start.Y, err)
	}
	v1 := direction.Rotate(halfAngle)
	v2 := direction.Rotate(-halfAngle)
	return []Position{start, start.Add(v1, rng), start.Add(v2, rng)}, nil
}

// Cone 以三角形多边形实体表示扇形，便于直接用于碰撞查询
func Cone(id uint64, start Position, direction Direction, rng, halfAngle float64) (Entity, error) {
	vs, err := CalculateTriangleVertices(start, direction, rng, halfAngle)
	if err != nil {
		return Entity{}, err
	}
	cone := NewPolygon(id, vs...)
	cone.Category = CategoryZone
	return cone, nil
}
