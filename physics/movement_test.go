package physics

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mover(id uint64, cat Category, pos Position, dir Direction, speed float64) Entity {
	e := NewCircle(id, pos, 1)
	e.Category = cat
	e.Direction = dir
	e.Speed = speed
	e.IsMoving = true
	return e
}

func TestAdvance(t *testing.T) {
	e := mover(1, CategoryPlayer, Position{1, 1}, Direction{1, 0}, 2)
	assert.Equal(t, Position{2, 1}, Advance(e, 0.5).Position)

	e.IsMoving = false
	assert.Equal(t, Position{1, 1}, Advance(e, 0.5).Position)
}

func TestMoveEntityClampsPlayerToSquare(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	boundary := square(0, 0, 10)
	player := mover(1, CategoryPlayer, Position{9, 5}, Direction{1, 0}, 5)

	moved, err := eng.MoveEntity(player, 1, boundary)
	require.NoError(t, err)
	assert.LessOrEqual(t, moved.Position.X, 10.0)
	assert.Greater(t, moved.Position.X, 9.99)
	assert.Equal(t, 5.0, moved.Position.Y)

	inside, err := IsInsideMap(moved, boundary)
	require.NoError(t, err)
	assert.True(t, inside)
	assert.Equal(t, Position{9, 5}, player.Position, "input not mutated")
}

func TestMoveEntityClampsPlayerToCircle(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	boundary := NewCircle(0, Position{0, 0}, 10)
	player := mover(1, CategoryPlayer, Position{0, 9}, Direction{0, 1}, 5)

	moved, err := eng.MoveEntity(player, 1, boundary)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, moved.Position.Y, 0.01)
	assert.True(t, PointInCircle(moved.Position, boundary))
}

func TestMoveEntityDoesNotClampNonPlayers(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	boundary := square(0, 0, 10)
	bullet := mover(2, CategoryProjectile, Position{9, 5}, Direction{1, 0}, 5)

	moved, err := eng.MoveEntity(bullet, 1, boundary)
	require.NoError(t, err)
	assert.Equal(t, Position{14, 5}, moved.Position)
}

func TestMoveEntityInsideIsUnchanged(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	moved, err := eng.MoveEntity(mover(1, CategoryPlayer, Position{5, 5}, Direction{1, 0}, 1), 1, square(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, Position{6, 5}, moved.Position)
}

func TestMoveEntityStartOutsideFails(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	player := mover(1, CategoryPlayer, Position{20, 5}, Direction{1, 0}, 1)

	moved, err := eng.MoveEntity(player, 1, square(0, 0, 10))
	assert.ErrorIs(t, err, ErrBoundaryResolutionFailed)
	assert.Equal(t, Position{20, 5}, moved.Position, "keeps pre-move position")
}

func TestMoveToNextValidPositionIterationBudget(t *testing.T) {
	eng := NewEngine(Config{BoundaryTolerance: 1e-9, MaxBoundaryIterations: 1})
	player := mover(1, CategoryPlayer, Position{14, 5}, Direction{1, 0}, 5)

	pos, err := eng.MoveToNextValidPosition(player, Position{9, 5}, square(0, 0, 10))
	assert.ErrorIs(t, err, ErrBoundaryResolutionFailed)
	assert.Equal(t, Position{9, 5}, pos)
}

func TestMoveToNextValidPositionConcaveBoundary(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	// U 形：中间的缺口把位移线段切成两段合法区域
	u := NewPolygon(0,
		Position{0, 0}, Position{30, 0}, Position{30, 10}, Position{20, 10},
		Position{20, 5}, Position{10, 5}, Position{10, 10}, Position{0, 10})
	player := mover(1, CategoryPlayer, Position{35, 8}, Direction{1, 0}, 0)

	pos, err := eng.MoveToNextValidPosition(player, Position{5, 8}, u)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, pos.X, 0.01, "closest valid point to destination")
	assert.Equal(t, 8.0, pos.Y)
}

func TestMoveToNextValidPositionNarrowRegionNearTarget(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	// 右侧只有 0.5 宽的合法条带，比等距采样的步长还窄
	notched := NewPolygon(0,
		Position{0, 0}, Position{34, 0}, Position{34, 10}, Position{33.5, 10},
		Position{33.5, 5}, Position{10, 5}, Position{10, 10}, Position{0, 10})
	player := mover(1, CategoryPlayer, Position{35, 8}, Direction{1, 0}, 0)

	pos, err := eng.MoveToNextValidPosition(player, Position{5, 8}, notched)
	require.NoError(t, err)
	assert.InDelta(t, 34.0, pos.X, 0.01)
	assert.Equal(t, 8.0, pos.Y)
	inside, err := PointInPolygon(pos, notched)
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestBoundaryCrossings(t *testing.T) {
	ts := boundaryCrossings(Position{5, 5}, Position{15, 5}, square(0, 0, 10))
	require.Len(t, ts, 1)
	assert.InDelta(t, 0.5, ts[0], 1e-12)

	assert.Empty(t, boundaryCrossings(Position{1, 1}, Position{2, 2}, square(0, 0, 10)))
	assert.Nil(t, boundaryCrossings(Position{0, 0}, Position{20, 0}, NewCircle(0, Position{}, 10)))
}

func TestMoveEntitiesSnapshot(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	boundary := square(0, 0, 10)
	still := NewCircle(3, Position{1, 1}, 1)
	in := map[uint64]Entity{
		1: mover(1, CategoryPlayer, Position{9, 5}, Direction{1, 0}, 5),
		2: mover(2, CategoryProjectile, Position{9, 5}, Direction{1, 0}, 5),
		3: still,
	}

	out, err := eng.MoveEntities(in, 1, boundary)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.LessOrEqual(t, out[1].Position.X, 10.0)
	assert.Equal(t, Position{14, 5}, out[2].Position)
	assert.Equal(t, still, out[3])
	assert.Equal(t, Position{9, 5}, in[1].Position)
}

func TestMoveEntitiesAggregatesFailures(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	in := map[uint64]Entity{
		1: mover(1, CategoryPlayer, Position{20, 5}, Direction{1, 0}, 1),
		2: mover(2, CategoryPlayer, Position{5, 5}, Direction{0, 1}, 1),
	}

	out, err := eng.MoveEntities(in, 1, square(0, 0, 10))
	assert.ErrorIs(t, err, ErrBoundaryResolutionFailed)
	assert.Equal(t, Position{20, 5}, out[1].Position)
	assert.Equal(t, Position{5, 6}, out[2].Position)
}

func TestMoveEntityCopiesVertices(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	poly := square(5, 1, 2)
	poly.IsMoving = true
	poly.Category = CategoryObstacle

	moved, err := eng.MoveEntity(poly, 1, square(0, 0, 10))
	require.NoError(t, err)
	moved.Vertices[0] = Position{99, 99}
	assert.Equal(t, Position{1, 1}, poly.Vertices[0])
}

func TestIsInsideMapUnsupportedBoundary(t *testing.T) {
	_, err := IsInsideMap(NewPoint(1, Position{}), NewSegment(0, Position{}, Position{1, 1}))
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestResolvedPositionAlwaysInside(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	boundary := NewPolygon(0,
		Position{0, 0}, Position{10, 0}, Position{10, 4},
		Position{4, 4}, Position{4, 10}, Position{0, 10})
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 500; i++ {
		var start Position
		for {
			start = Position{rng.Float64() * 10, rng.Float64() * 10}
			if ok, _ := PointInPolygon(start, boundary); ok {
				break
			}
		}
		dir, err := Normalize(rng.Float64()*2-1, rng.Float64()*2-1)
		require.NoError(t, err)
		player := mover(uint64(i+1), CategoryPlayer, start, dir, rng.Float64()*20)

		moved, err := eng.MoveEntity(player, 1, boundary)
		require.NoError(t, err)
		inside, err := IsInsideMap(moved, boundary)
		require.NoError(t, err)
		require.True(t, inside, "start %v dir %v -> %v", start, dir, moved.Position)
	}
}
