package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

func TestEncodeFirstSightingIsFullDelta(t *testing.T) {
	e := NewEncoder(DefaultThresholds)

	deltas := e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 1, Y: 2}, Angle: 0.1}})

	require.Len(t, deltas, 1)
	d := deltas[0]
	require.NotNil(t, d.Position)
	require.NotNil(t, d.Velocity)
	require.NotNil(t, d.Angle)
	require.NotNil(t, d.AngularVelocity)
	require.NotNil(t, d.IsSleeping)
	require.NotNil(t, d.ThrustOn)
	require.NotNil(t, d.Cargo)
}

func TestEncodeIncludesIsSleepingAndCargoOnlyOnChange(t *testing.T) {
	e := NewEncoder(DefaultThresholds)
	e.Encode([]PlayerState{{ID: "p1", IsSleeping: false, Cargo: "empty"}})

	unchanged := e.Encode([]PlayerState{{ID: "p1", IsSleeping: false, Cargo: "empty"}})
	assert.Empty(t, unchanged)

	sleptDeltas := e.Encode([]PlayerState{{ID: "p1", IsSleeping: true, Cargo: "empty"}})
	require.Len(t, sleptDeltas, 1)
	require.NotNil(t, sleptDeltas[0].IsSleeping)
	assert.True(t, *sleptDeltas[0].IsSleeping)
	assert.Nil(t, sleptDeltas[0].Cargo)

	cargoDeltas := e.Encode([]PlayerState{{ID: "p1", IsSleeping: true, Cargo: "ore"}})
	require.Len(t, cargoDeltas, 1)
	require.NotNil(t, cargoDeltas[0].Cargo)
	assert.Equal(t, "ore", *cargoDeltas[0].Cargo)
	assert.Nil(t, cargoDeltas[0].IsSleeping)
}

func TestEncodeOmitsPlayerBelowAllThresholds(t *testing.T) {
	e := NewEncoder(DefaultThresholds)
	base := PlayerState{ID: "p1", Position: kernel.Vector{X: 100, Y: 100}, Angle: 0}
	e.Encode([]PlayerState{base})

	tiny := base
	tiny.Position.X += 0.01 // well under the 0.5 position threshold

	deltas := e.Encode([]PlayerState{tiny})
	assert.Empty(t, deltas)
}

func TestEncodeIncludesOnlyFieldsPastThreshold(t *testing.T) {
	e := NewEncoder(DefaultThresholds)
	base := PlayerState{ID: "p1", Position: kernel.Vector{X: 0, Y: 0}, Velocity: kernel.Vector{X: 0, Y: 0}, Angle: 0}
	e.Encode([]PlayerState{base})

	moved := base
	moved.Position.X = 10 // past threshold
	// velocity and angle unchanged

	deltas := e.Encode([]PlayerState{moved})
	require.Len(t, deltas, 1)
	assert.NotNil(t, deltas[0].Position)
	assert.Nil(t, deltas[0].Velocity)
	assert.Nil(t, deltas[0].Angle)
}

func TestEncodeOmitsPositionWhenNoSingleAxisExceedsThresholdEvenIfEuclideanDistanceDoes(t *testing.T) {
	e := NewEncoder(Thresholds{Position: 0.05, Velocity: 0.05, Angle: 0.01})
	base := PlayerState{ID: "p1", Position: kernel.Vector{X: 0, Y: 0}}
	e.Encode([]PlayerState{base})

	// Δx=Δy=0.04 individually stay under the 0.05 threshold, even though the
	// Euclidean distance (~0.0566) would cross it.
	jittered := base
	jittered.Position = kernel.Vector{X: 0.04, Y: 0.04}

	deltas := e.Encode([]PlayerState{jittered})
	assert.Empty(t, deltas)
}

func TestEncodeAccumulatesDriftAgainstLastSentNotLastTick(t *testing.T) {
	e := NewEncoder(Thresholds{Position: 1, Velocity: 1000, Angle: 1000})
	e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 0, Y: 0}}})

	// Two sub-threshold moves in the same direction should still sum past
	// the threshold relative to the original last-sent position.
	e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 0.6, Y: 0}}})
	deltas := e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 1.1, Y: 0}}})

	require.Len(t, deltas, 1)
	require.NotNil(t, deltas[0].Position)
	assert.Equal(t, 1.1, deltas[0].Position.X)
}

func TestEncodeAngularVelocityUsesEpsilonNotThreshold(t *testing.T) {
	e := NewEncoder(DefaultThresholds)
	e.Encode([]PlayerState{{ID: "p1", AngularVelocity: 1.0}})

	deltas := e.Encode([]PlayerState{{ID: "p1", AngularVelocity: 1.0 - AngularVelocityEpsilon/2}})
	assert.Empty(t, deltas)

	deltas = e.Encode([]PlayerState{{ID: "p1", AngularVelocity: 0.9}})
	require.Len(t, deltas, 1)
	require.NotNil(t, deltas[0].AngularVelocity)
}

func TestForgetResetsToFullDeltaOnNextSighting(t *testing.T) {
	e := NewEncoder(DefaultThresholds)
	e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 5, Y: 5}}})
	e.Forget("p1")

	deltas := e.Encode([]PlayerState{{ID: "p1", Position: kernel.Vector{X: 5.01, Y: 5}}})
	require.Len(t, deltas, 1)
	assert.NotNil(t, deltas[0].Position)
}
