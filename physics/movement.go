package physics

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Advance 按方向、速度和时间步长推进位置；IsMoving 为 false 时原样返回
func Advance(entity Entity, deltaTime float64) Entity {
	if !entity.IsMoving {
		return entity
	}
	entity.Position = entity.Position.Add(entity.Direction, entity.Speed*deltaTime)
	return entity
}

// IsInsideMap 判断实体参考点是否在边界内，按边界形状（多边形/圆）分派
func IsInsideMap(entity Entity, boundary Entity) (bool, error) {
	return insideBoundary(entity.Position, boundary)
}

func insideBoundary(p Position, boundary Entity) (bool, error) {
	switch boundary.Shape {
	case ShapePolygon:
		return PointInPolygon(p, boundary)
	case ShapeCircle:
		return PointInCircle(p, boundary), nil
	default:
		return false, fmt.Errorf("boundary %d is a %s: %w", boundary.ID, boundary.Shape, ErrUnsupportedShape)
	}
}

// MoveEntity 推进单个实体；玩家越界时拉回到本次位移线段上最后一个合法位置。
// 修正失败时返回错误，实体保持移动前的位置。
func (e *Engine) MoveEntity(entity Entity, deltaTime float64, boundary Entity) (Entity, error) {
	entity = entity.clone()
	if !entity.IsMoving {
		return entity, nil
	}
	from := entity.Position
	moved := Advance(entity, deltaTime)
	if moved.Category != CategoryPlayer {
		return moved, nil
	}
	inside, err := IsInsideMap(moved, boundary)
	if err != nil {
		return entity, fmt.Errorf("entity %d: %w", entity.ID, err)
	}
	if inside {
		return moved, nil
	}
	pos, err := e.MoveToNextValidPosition(moved, from, boundary)
	if err != nil {
		return entity, err
	}
	moved.Position = pos
	return moved, nil
}

// MoveEntities 推进快照中所有移动中的实体，返回新的快照（输入 map 不被修改）。
// 单个实体修正失败不会中断其余实体，错误合并后一并返回。
func (e *Engine) MoveEntities(entities map[uint64]Entity, deltaTime float64, boundary Entity) (map[uint64]Entity, error) {
	out := make(map[uint64]Entity, len(entities))
	var errs error
	for _, id := range slices.Sorted(maps.Keys(entities)) {
		moved, err := e.MoveEntity(entities[id], deltaTime, boundary)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		out[id] = moved
	}
	return out, errs
}

// MoveToNextValidPosition 在位移线段 from → entity.Position 上寻找离目标点最近、
// 且仍在边界内的位置。迭代次数有上限；from 本身不在边界内或无法收敛时
// 返回 ErrBoundaryResolutionFailed。
func (e *Engine) MoveToNextValidPosition(entity Entity, from Position, boundary Entity) (Position, error) {
	to := entity.Position
	inside := func(t float64) (bool, error) {
		return insideBoundary(from.Lerp(to, t), boundary)
	}

	ok, err := inside(1)
	if err != nil {
		return from, err
	}
	if ok {
		return to, nil
	}
	ok, err = inside(0)
	if err != nil {
		return from, err
	}
	if !ok {
		return from, fmt.Errorf("entity %d: start (%g,%g) is outside boundary %d: %w",
			entity.ID, from.X, from.Y, boundary.ID, ErrBoundaryResolutionFailed)
	}

	// 位移线段被边界边切成若干区间，区间内内外状态不变；
	// 从目标端逐个检查区间中点，lo 始终在边界内，hi 始终在边界外，
	// 两者之间恰好只剩一次穿越，再二分逼近
	cuts := append(append([]float64{0}, boundaryCrossings(from, to, boundary)...), 1)
	lo, hi := 0.0, 1.0
	for i := len(cuts) - 2; i >= 0; i-- {
		t := (cuts[i] + cuts[i+1]) / 2
		ok, err := inside(t)
		if err != nil {
			return from, err
		}
		if ok {
			lo = t
			break
		}
		hi = t
	}

	length := Distance(from, to)
	iter := 0
	for ; iter < e.cfg.MaxBoundaryIterations && length*(hi-lo) > e.cfg.BoundaryTolerance; iter++ {
		mid := (lo + hi) / 2
		ok, err := inside(mid)
		if err != nil {
			return from, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	if length*(hi-lo) > e.cfg.BoundaryTolerance {
		return from, fmt.Errorf("entity %d: no convergence after %d iterations (gap %g): %w",
			entity.ID, iter, length*(hi-lo), ErrBoundaryResolutionFailed)
	}

	pos := from.Lerp(to, lo)
	e.log.Debug("clamped to boundary",
		zap.Uint64("entity", entity.ID),
		zap.Float64("x", pos.X),
		zap.Float64("y", pos.Y),
		zap.Int("iterations", iter),
	)
	return pos, nil
}

// boundaryCrossings 返回线段 from → to 与多边形各边交点的参数 t（0 < t < 1），升序去重。
// 圆形边界是凸的，线段最多穿出一次，不需要切分。
func boundaryCrossings(from, to Position, boundary Entity) []float64 {
	if boundary.Shape != ShapePolygon {
		return nil
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	n := len(boundary.Vertices)
	var ts []float64
	for i := 0; i < n; i++ {
		a, b := boundary.Vertices[i], boundary.Vertices[(i+1)%n]
		ex, ey := b.X-a.X, b.Y-a.Y
		denom := dx*ey - dy*ex
		if denom == 0 {
			continue // 平行或共线
		}
		wx, wy := a.X-from.X, a.Y-from.Y
		t := (wx*ey - wy*ex) / denom
		s := (wx*dy - wy*dx) / denom
		if t > 0 && t < 1 && s >= 0 && s <= 1 {
			ts = append(ts, t)
		}
	}
	slices.Sort(ts)
	return slices.Compact(ts)
}
