package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollidingPoints(t *testing.T) {
	e := NewEngine(DefaultConfig())
	seg := NewSegment(1, Position{0, 0}, Position{10, 0})

	points, err := e.CollidingPoints(seg, NewCircle(2, Position{2, 1}, 3))
	require.NoError(t, err)
	assert.Equal(t, []Position{{0, 0}, {2, 0}}, points)

	points, err = e.CollidingPoints(seg, NewCircle(2, Position{5, 5}, 5))
	require.NoError(t, err)
	assert.Equal(t, []Position{{5, 0}}, points)

	points, err = e.CollidingPoints(seg, NewCircle(2, Position{10, 1}, 2))
	require.NoError(t, err)
	assert.Equal(t, []Position{{10, 0}, {10, 0}}, points, "endpoint and projection coincide")

	points, err = e.CollidingPoints(seg, NewCircle(2, Position{50, 50}, 1))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestCollidingPointsZeroLengthSegment(t *testing.T) {
	e := NewEngine(DefaultConfig())
	dot := NewSegment(1, Position{1, 1}, Position{1, 1})

	hit, err := e.SegmentCircleCollision(dot, NewCircle(2, Position{0, 0}, 3))
	require.NoError(t, err)
	assert.True(t, hit)
	points, err := e.CollidingPoints(dot, NewCircle(2, Position{0, 0}, 3))
	require.NoError(t, err, "endpoint inside the circle is a valid contact")
	assert.Equal(t, []Position{{1, 1}, {1, 1}}, points)

	_, err = e.SegmentCircleCollision(dot, NewCircle(2, Position{10, 10}, 1))
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
	points, err = e.CollidingPoints(dot, NewCircle(2, Position{10, 10}, 1))
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
	assert.Empty(t, points)
}

func TestCheckCollisionsCircleQuery(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := NewCircle(1, Position{0, 0}, 5)
	entities := map[uint64]Entity{
		1: NewCircle(1, Position{0, 0}, 5),
		2: NewPoint(2, Position{3, 0}),
		3: NewCircle(3, Position{8, 0}, 3),
		4: NewCircle(4, Position{20, 0}, 1),
		5: NewSegment(5, Position{-10, 4}, Position{10, 4}),
		6: square(6, -50, 50),
		7: square(7, 100, 110),
	}

	ids, err := e.CheckCollisions(query, entities)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 5, 6}, ids)
}

func TestCheckCollisionsPointQuery(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := NewPoint(100, Position{5, 5})
	entities := map[uint64]Entity{
		1: NewPoint(1, Position{5, 5}),
		2: NewPoint(2, Position{5, 6}),
		3: NewCircle(3, Position{6, 5}, 2),
		4: NewSegment(4, Position{0, 5}, Position{10, 5}),
		5: square(5, 0, 10),
		6: square(6, 20, 30),
	}

	ids, err := e.CheckCollisions(query, entities)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 4, 5}, ids)
}

func TestCheckCollisionsOrderedKeepsInputOrder(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := NewCircle(1, Position{0, 0}, 10)
	ids, err := e.CheckCollisionsOrdered(query, []Entity{
		NewPoint(9, Position{1, 1}),
		NewPoint(7, Position{50, 50}),
		NewPoint(3, Position{2, 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 3}, ids)
}

func TestCheckCollisionsErrors(t *testing.T) {
	e := NewEngine(DefaultConfig())

	_, err := e.CheckCollisions(square(1, 0, 1), map[uint64]Entity{2: NewPoint(2, Position{})})
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = e.CheckCollisions(NewPoint(1, Position{}), map[uint64]Entity{
		2: NewPolygon(2, Position{0, 0}, Position{1, 1}),
	})
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
}
