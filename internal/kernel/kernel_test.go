package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGravityPullsTowardSource(t *testing.T) {
	body := KernelBody{Position: Vector{X: 100, Y: 0}, Mass: 1}
	sources := []MassPoint{{Position: Vector{X: 0, Y: 0}, Mass: 1e7}}

	f := Gravity(body, sources)

	assert.Less(t, f.X, 0.0, "force should pull the body toward the origin")
	assert.InDelta(t, 0, f.Y, 1e-9)
}

func TestGravitySumsMultipleSources(t *testing.T) {
	body := KernelBody{Position: Vector{X: 0, Y: 0}, Mass: 1}
	sources := []MassPoint{
		{Position: Vector{X: 100, Y: 0}, Mass: 1e7},
		{Position: Vector{X: -100, Y: 0}, Mass: 1e7},
	}

	f := Gravity(body, sources)

	assert.InDelta(t, 0, f.X, 1e-6, "equal opposite sources should cancel")
}

func TestGravityAtSourceDoesNotDivideByZero(t *testing.T) {
	body := KernelBody{Position: Vector{X: 5, Y: 5}, Mass: 1}
	sources := []MassPoint{{Position: Vector{X: 5, Y: 5}, Mass: 1e7}}

	require.NotPanics(t, func() { Gravity(body, sources) })
	f := Gravity(body, sources)
	assert.False(t, math.IsNaN(f.X))
	assert.False(t, math.IsNaN(f.Y))
}

func TestGravityPurity(t *testing.T) {
	body := KernelBody{Position: Vector{X: 12, Y: -7}, Velocity: Vector{X: 1, Y: 2}, Mass: 3}
	sources := []MassPoint{{Position: Vector{X: 0, Y: 0}, Mass: 5e6}}

	f1 := Gravity(body, sources)
	f2 := Gravity(body, sources)

	assert.Equal(t, f1, f2)
}

func TestDensityAtInsideAtmosphere(t *testing.T) {
	planets := []AtmospherePlanet{{
		Position:         Vector{X: 0, Y: 0},
		Radius:           500,
		AtmosphereHeight: 200,
		SurfaceDensity:   1,
	}}

	atSurface := DensityAt(Vector{X: 500, Y: 0}, planets)
	assert.InDelta(t, 1.0, atSurface, 1e-9)

	midAtmosphere := DensityAt(Vector{X: 600, Y: 0}, planets)
	assert.InDelta(t, 0.5, midAtmosphere, 1e-9)

	farOutside := DensityAt(Vector{X: 800, Y: 0}, planets)
	assert.InDelta(t, 0, farOutside, 1e-9)
}

func TestDensityAtStepWhenNoAtmosphere(t *testing.T) {
	planets := []AtmospherePlanet{{
		Position:         Vector{X: 0, Y: 0},
		Radius:           100,
		AtmosphereHeight: 0,
		SurfaceDensity:   2,
	}}

	assert.Equal(t, 2.0, DensityAt(Vector{X: 50, Y: 0}, planets))
	assert.Equal(t, 0.0, DensityAt(Vector{X: 150, Y: 0}, planets))
}

func TestDensityAtTakesMaxAcrossPlanets(t *testing.T) {
	planets := []AtmospherePlanet{
		{Position: Vector{X: 0, Y: 0}, Radius: 100, AtmosphereHeight: 100, SurfaceDensity: 1},
		{Position: Vector{X: 1000, Y: 0}, Radius: 100, AtmosphereHeight: 500, SurfaceDensity: 5},
	}

	d := DensityAt(Vector{X: 650, Y: 0}, planets)
	assert.InDelta(t, 5*0.5, d, 1e-9)
}

func TestAirResistanceOpposesVelocity(t *testing.T) {
	body := KernelBody{Velocity: Vector{X: 10, Y: 0}}
	f := AirResistance(body, 1.0)
	assert.Less(t, f.X, 0.0)
	assert.InDelta(t, 0, f.Y, 1e-9)
}

func TestAirResistanceZeroVelocityIsZeroForce(t *testing.T) {
	body := KernelBody{Velocity: Vector{}}
	f := AirResistance(body, 1.0)
	assert.Equal(t, Vector{}, f)
}

func TestAngularDampingScalesAndSnaps(t *testing.T) {
	assert.InDelta(t, 0.9, AngularDamping(1.0, 0.1), 1e-9)
	assert.Equal(t, 0.0, AngularDamping(0.0005, 0.1))
}

func TestWrapAngleStaysInRange(t *testing.T) {
	cases := []float64{0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 0.5, -0.5}
	for _, theta := range cases {
		w := WrapAngle(theta)
		assert.True(t, w > -math.Pi-1e-9 && w <= math.Pi+1e-9, "wrap(%v) = %v out of range", theta, w)
	}
}

func TestShortestArcIsSigned(t *testing.T) {
	d := ShortestArc(math.Pi-0.1, -math.Pi+0.1)
	assert.InDelta(t, 0.2, d, 1e-9)
}
