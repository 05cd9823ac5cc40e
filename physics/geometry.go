package physics

import (
	"fmt"
	"math"
)

// Distance 欧氏距离
func Distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PointInCircle 点到圆心距离 <= 半径（边界算在内）
func PointInCircle(p Position, circle Entity) bool {
	return Distance(p, circle.Position) <= circle.Radius
}

// CircleCircleCollision 圆心距 <= 半径之和
func CircleCircleCollision(c1, c2 Entity) bool {
	return Distance(c1.Position, c2.Position) <= c1.Radius+c2.Radius
}

// PointOnSegment 判断点是否落在线段上：
// 两端点距离之和与线段长度之差不超过 SegmentTolerance（绝对值，不随线段长度缩放）
func (e *Engine) PointOnSegment(segment Entity, p Position) (bool, error) {
	if err := requireSegment(segment); err != nil {
		return false, err
	}
	return e.onSegment(segment.Vertices[0], segment.Vertices[1], p), nil
}

func (e *Engine) onSegment(a, b, p Position) bool {
	d := Distance(p, a) + Distance(p, b) - Distance(a, b)
	return math.Abs(d) <= e.cfg.SegmentTolerance
}

// ClosestPointOnLine 将 p 投影到线段所在直线上。
// t 不截断到 [0,1]，投影点是否在线段上由 PointOnSegment 另行判断。
func ClosestPointOnLine(segment Entity, p Position) (Position, error) {
	if err := requireSegment(segment); err != nil {
		return Position{}, err
	}
	return project(segment.Vertices[0], segment.Vertices[1], p)
}

func project(a, b, p Position) (Position, error) {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Position{}, fmt.Errorf("project onto zero-length segment at (%g,%g): %w", a.X, a.Y, ErrDegenerateGeometry)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	return Position{X: a.X + t*dx, Y: a.Y + t*dy}, nil
}

// SegmentCircleCollision 任一端点在圆内，或者圆心在线段上的投影点既在线段上又在圆内
func (e *Engine) SegmentCircleCollision(segment, circle Entity) (bool, error) {
	if err := requireSegment(segment); err != nil {
		return false, err
	}
	return e.segmentCircle(segment.Vertices[0], segment.Vertices[1], circle)
}

func (e *Engine) segmentCircle(a, b Position, circle Entity) (bool, error) {
	if PointInCircle(a, circle) || PointInCircle(b, circle) {
		return true, nil
	}
	closest, err := project(a, b, circle.Position)
	if err != nil {
		return false, err
	}
	if !e.onSegment(a, b, closest) {
		return false, nil
	}
	return PointInCircle(closest, circle), nil
}

// PointInPolygon 射线法（crossing number）奇偶判定。
// 比较符号 >= / < 决定了顶点恰在扫描线上时的归属，不能随意改动。
func PointInPolygon(p Position, polygon Entity) (bool, error) {
	vs := polygon.Vertices
	if len(vs) < 3 {
		return false, fmt.Errorf("point in polygon %d with %d vertices: %w", polygon.ID, len(vs), ErrDegenerateGeometry)
	}
	inside := false
	for i := range vs {
		cur := vs[i]
		next := vs[(i+1)%len(vs)]
		// 短路保证水平边（cur.Y == next.Y）不会进入除法
		if ((cur.Y >= p.Y && next.Y < p.Y) || (cur.Y < p.Y && next.Y >= p.Y)) &&
			p.X < (next.X-cur.X)*(p.Y-cur.Y)/(next.Y-cur.Y)+cur.X {
			inside = !inside
		}
	}
	return inside, nil
}

// CirclePolygonCollision 任一边与圆相交，或圆心在多边形内（完全包含、没有边接触的情况）
func (e *Engine) CirclePolygonCollision(circle, polygon Entity) (bool, error) {
	vs := polygon.Vertices
	if len(vs) < 3 {
		return false, fmt.Errorf("circle vs polygon %d with %d vertices: %w", polygon.ID, len(vs), ErrDegenerateGeometry)
	}
	for i := range vs {
		hit, err := e.segmentCircle(vs[i], vs[(i+1)%len(vs)], circle)
		if err != nil {
			return false, fmt.Errorf("polygon %d edge %d: %w", polygon.ID, i, err)
		}
		if hit {
			return true, nil
		}
	}
	return PointInPolygon(circle.Position, polygon)
}

func requireSegment(segment Entity) error {
	if len(segment.Vertices) != 2 {
		return fmt.Errorf("segment %d with %d vertices: %w", segment.ID, len(segment.Vertices), ErrDegenerateGeometry)
	}
	return nil
}
