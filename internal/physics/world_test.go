package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

func shipVertices() []kernel.Vector {
	return []kernel.Vector{
		{X: -10, Y: -10},
		{X: 10, Y: -10},
		{X: 10, Y: 10},
		{X: -10, Y: 10},
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.Add(NewCircleBody("planet-1", kernel.Vector{}, 500, 1e7, true)))

	err := w.Add(NewCircleBody("planet-1", kernel.Vector{X: 10}, 500, 1e7, true))
	assert.ErrorIs(t, err, ErrDuplicateBody)
}

func TestRemoveUnknownBodyErrors(t *testing.T) {
	w := NewWorld()
	err := w.Remove("missing")
	assert.ErrorIs(t, err, ErrUnknownBody)
}

func TestApplyForceUnknownBodyErrors(t *testing.T) {
	w := NewWorld()
	err := w.ApplyForce("missing", kernel.Vector{X: 1})
	assert.ErrorIs(t, err, ErrUnknownBody)
}

func TestStepIntegratesForceIntoVelocityAndPosition(t *testing.T) {
	w := NewWorld()
	ship := NewPolygonBody("p1", kernel.Vector{}, shipVertices(), 10, 0, 0.5, 1, 1)
	require.NoError(t, w.Add(ship))

	require.NoError(t, w.ApplyForce("p1", kernel.Vector{X: 100}))
	w.Step(1.0)

	got, _ := w.Get("p1")
	assert.InDelta(t, 10, got.Velocity().X, 1e-9) // F/m*dt = 100/10*1
	assert.InDelta(t, 10, got.Position().X, 1e-9) // v*dt after the same step
}

func TestStepLeavesStaticBodiesMotionless(t *testing.T) {
	w := NewWorld()
	planet := NewCircleBody("sun", kernel.Vector{X: 5, Y: 5}, 500, 1e7, true)
	require.NoError(t, w.Add(planet))

	require.NoError(t, w.ApplyForce("sun", kernel.Vector{X: 1000, Y: 1000}))
	w.Step(1.0)

	got, _ := w.Get("sun")
	assert.Equal(t, kernel.Vector{X: 5, Y: 5}, got.Position())
	assert.Equal(t, kernel.Vector{}, got.Velocity())
}

func TestSetAngleWrapsAndRejectsUnknownBody(t *testing.T) {
	w := NewWorld()
	ship := NewPolygonBody("p1", kernel.Vector{}, shipVertices(), 10, 0, 0.5, 1, 1)
	require.NoError(t, w.Add(ship))

	require.NoError(t, w.SetAngle("p1", 4*3.14159265))
	got, _ := w.Get("p1")
	assert.True(t, got.Angle > -3.15 && got.Angle <= 3.15)

	assert.ErrorIs(t, w.SetAngle("missing", 0), ErrUnknownBody)
}

func TestBodyGoesToSleepAfterSustainedRest(t *testing.T) {
	w := NewWorld()
	ship := NewPolygonBody("p1", kernel.Vector{}, shipVertices(), 10, 0, 0.5, 1, 1)
	require.NoError(t, w.Add(ship))

	for i := 0; i < SleepTickThreshold+1; i++ {
		w.Step(1.0 / 60.0)
	}

	got, _ := w.Get("p1")
	assert.True(t, got.IsSleeping)
}

func TestApplyForceWakesASleepingBody(t *testing.T) {
	w := NewWorld()
	ship := NewPolygonBody("p1", kernel.Vector{}, shipVertices(), 10, 0, 0.5, 1, 1)
	require.NoError(t, w.Add(ship))
	for i := 0; i < SleepTickThreshold+1; i++ {
		w.Step(1.0 / 60.0)
	}
	require.True(t, ship.IsSleeping)

	require.NoError(t, w.ApplyForce("p1", kernel.Vector{X: 500}))
	w.Step(1.0 / 60.0)

	assert.False(t, ship.IsSleeping)
}

func TestTwoCirclesOverlappingAreReportedAsColliding(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.Add(NewCircleBody("a", kernel.Vector{X: 0, Y: 0}, 10, 5, false)))
	require.NoError(t, w.Add(NewCircleBody("b", kernel.Vector{X: 5, Y: 0}, 10, 5, false)))

	w.Step(0)

	pairs := w.BodiesCollidingThisStep()
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)
}

func TestDistantBodiesDoNotCollide(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.Add(NewCircleBody("a", kernel.Vector{X: 0, Y: 0}, 10, 5, false)))
	require.NoError(t, w.Add(NewCircleBody("b", kernel.Vector{X: 1000, Y: 0}, 10, 5, false)))

	w.Step(0)

	assert.Empty(t, w.BodiesCollidingThisStep())
}

func TestCollisionFilterSkipsMismatchedCategoryMask(t *testing.T) {
	w := NewWorld()
	a := NewCircleBody("a", kernel.Vector{X: 0, Y: 0}, 10, 5, false)
	a.CollisionCategory = 0x1
	a.CollisionMask = 0x1
	b := NewCircleBody("b", kernel.Vector{X: 5, Y: 0}, 10, 5, false)
	b.CollisionCategory = 0x2
	b.CollisionMask = 0x2
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(b))

	w.Step(0)

	assert.Empty(t, w.BodiesCollidingThisStep())
}

func TestCollisionSeparatesOverlappingDynamicBodies(t *testing.T) {
	w := NewWorld()
	a := NewCircleBody("a", kernel.Vector{X: 0, Y: 0}, 10, 5, false)
	b := NewCircleBody("b", kernel.Vector{X: 5, Y: 0}, 10, 5, false)
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(b))

	w.Step(0)

	pa, pb := a.Position(), b.Position()
	dist := pb.Sub(pa).Length()
	assert.GreaterOrEqual(t, dist, 20-1e-6)
}

func TestStaticBodyNeverMovesOnCollision(t *testing.T) {
	w := NewWorld()
	planet := NewCircleBody("planet", kernel.Vector{X: 0, Y: 0}, 500, 1e7, true)
	ship := NewPolygonBody("ship", kernel.Vector{X: 505, Y: 0}, shipVertices(), 10, 0, 0.4, 1, 1)
	require.NoError(t, w.Add(planet))
	require.NoError(t, w.Add(ship))

	w.Step(0)

	got, _ := w.Get("planet")
	assert.Equal(t, kernel.Vector{}, got.Position())
}
