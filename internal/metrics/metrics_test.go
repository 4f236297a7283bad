package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	var c Counters
	c.IncTicks()
	c.IncTicks()
	c.AddInputsAccepted(5)
	c.AddInputsDropped(2)
	c.IncInputsInvalid()
	c.IncAccumulatorResets()
	c.IncPlayersJoined()
	c.IncPlayersJoined()
	c.IncPlayersLeft()
	c.AddCollisions(3)
	c.RecordPing(15 * time.Millisecond)

	snap := c.Snapshot(time.Unix(0, 0))
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Equal(t, uint64(5), snap.InputsAccepted)
	assert.Equal(t, uint64(2), snap.InputsDropped)
	assert.Equal(t, uint64(1), snap.InputsInvalid)
	assert.Equal(t, uint64(1), snap.AccumulatorResets)
	assert.Equal(t, uint64(2), snap.PlayersJoined)
	assert.Equal(t, uint64(1), snap.PlayersLeft)
	assert.Equal(t, uint64(3), snap.Collisions)
	assert.Equal(t, uint64(1), snap.PingCount)
	assert.InDelta(t, 15.0, snap.LastRTTMillis, 1e-6)
}

func TestFakeClockAdvancesDeterministically(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	assert.Equal(t, start, clock.Now())
	clock.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), clock.Now())
}
