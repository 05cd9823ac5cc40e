package physics

import (
	"fmt"
	"maps"
	"slices"
)

// CollidingPoints 返回线段与圆的具体接触点：
// 依次为在圆内的端点0、端点1，最后是（在线段上且在圆内的）投影点
func (e *Engine) CollidingPoints(segment, circle Entity) ([]Position, error) {
	if err := requireSegment(segment); err != nil {
		return nil, err
	}
	a, b := segment.Vertices[0], segment.Vertices[1]
	var points []Position
	if PointInCircle(a, circle) {
		points = append(points, a)
	}
	if PointInCircle(b, circle) {
		points = append(points, b)
	}
	// 零长度线段：端点已落在圆内即为有效接触，与 SegmentCircleCollision 一致；
	// 否则无法投影，返回 ErrDegenerateGeometry
	closest, err := project(a, b, circle.Position)
	if err != nil {
		if len(points) > 0 {
			return points, nil
		}
		return nil, err
	}
	if e.onSegment(a, b, closest) && PointInCircle(closest, circle) {
		points = append(points, closest)
	}
	return points, nil
}

// predicate 探针与候选实体的碰撞判定
type predicate func(e *Engine, query, candidate Entity) (bool, error)

type shapePair struct {
	query     Shape
	candidate Shape
}

// collisionTable 探针形状 × 候选形状 → 判定函数，探针只支持圆和点
var collisionTable = map[shapePair]predicate{
	{ShapeCircle, ShapePoint}: func(_ *Engine, query, c Entity) (bool, error) {
		return PointInCircle(c.Position, query), nil
	},
	{ShapeCircle, ShapeCircle}: func(_ *Engine, query, c Entity) (bool, error) {
		return CircleCircleCollision(query, c), nil
	},
	{ShapeCircle, ShapeSegment}: func(e *Engine, query, c Entity) (bool, error) {
		return e.SegmentCircleCollision(c, query)
	},
	{ShapeCircle, ShapePolygon}: func(e *Engine, query, c Entity) (bool, error) {
		return e.CirclePolygonCollision(query, c)
	},
	{ShapePoint, ShapePoint}: func(_ *Engine, query, c Entity) (bool, error) {
		return query.Position == c.Position, nil
	},
	{ShapePoint, ShapeCircle}: func(_ *Engine, query, c Entity) (bool, error) {
		return PointInCircle(query.Position, c), nil
	},
	{ShapePoint, ShapeSegment}: func(e *Engine, query, c Entity) (bool, error) {
		return e.PointOnSegment(c, query.Position)
	},
	{ShapePoint, ShapePolygon}: func(_ *Engine, query, c Entity) (bool, error) {
		return PointInPolygon(query.Position, c)
	},
}

// Collides 按形状组合分派到对应判定
func (e *Engine) Collides(query, candidate Entity) (bool, error) {
	fn, ok := collisionTable[shapePair{query.Shape, candidate.Shape}]
	if !ok {
		return false, fmt.Errorf("query %s vs %s: %w", query.Shape, candidate.Shape, ErrUnsupportedShape)
	}
	return fn(e, query, candidate)
}

// CheckCollisions 返回与探针碰撞的实体 id，按 id 升序（map 本身无序）。
// 与探针 id 相同的实体（探针自己）会被跳过。
func (e *Engine) CheckCollisions(query Entity, entities map[uint64]Entity) ([]uint64, error) {
	ordered := make([]Entity, 0, len(entities))
	for _, id := range slices.Sorted(maps.Keys(entities)) {
		ordered = append(ordered, entities[id])
	}
	return e.CheckCollisionsOrdered(query, ordered)
}

// CheckCollisionsOrdered 线性扫描候选列表，保留输入顺序
func (e *Engine) CheckCollisionsOrdered(query Entity, candidates []Entity) ([]uint64, error) {
	if query.Shape != ShapeCircle && query.Shape != ShapePoint {
		return nil, fmt.Errorf("query %d is a %s: %w", query.ID, query.Shape, ErrUnsupportedShape)
	}
	var ids []uint64
	for _, c := range candidates {
		if c.ID == query.ID {
			continue
		}
		hit, err := e.Collides(query, c)
		if err != nil {
			return ids, fmt.Errorf("candidate %d: %w", c.ID, err)
		}
		if hit {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}
