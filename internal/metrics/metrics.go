// Package metrics tracks per-room timing and counters and persists a
// periodic snapshot through Nakama storage, generalized from the teacher's
// database_manager.go — that file's world-state/player-data persistence is
// out of scope here (player/world save-state is an explicit Non-goal), but
// its storage-write shape (marshal a struct, one runtime.StorageWrite,
// public-read/no-write permissions, keyed by a fixed collection+key pair)
// is exactly what a room's metrics snapshot needs, so the persistence
// mechanics are kept and repointed at counters instead of game objects.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Clock abstracts wall-clock time so the room loop and its tests can run
// against either the real clock or a fake one that advances deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock delegates to time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a manually-advanced clock for tests: the room loop's
// watchdog and metrics code call Now() exactly like the real clock, but the
// test drives time forward explicitly instead of sleeping.
type FakeClock struct {
	current time.Time
}

// NewFakeClock creates a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{current: t} }

// Now returns the clock's current simulated time.
func (c *FakeClock) Now() time.Time { return c.current }

// Advance moves the simulated clock forward by d.
func (c *FakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// Counters is the set of atomically-updated room counters exposed for
// observability: ticks run, inputs processed/dropped, collisions resolved,
// and ping/pong round trips. All fields are accessed only through atomic
// operations so a concurrent admin read (e.g. from roomscript) never races
// the match loop's writes.
type Counters struct {
	Ticks             uint64
	InputsAccepted    uint64
	InputsDropped     uint64
	InputsInvalid     uint64
	AccumulatorResets uint64
	PlayersJoined     uint64
	PlayersLeft       uint64
	Collisions        uint64
	PingCount         uint64

	lastRTT int64 // nanoseconds, stored via atomic
}

// IncTicks increments the tick counter by one.
func (c *Counters) IncTicks() { atomic.AddUint64(&c.Ticks, 1) }

// AddInputsAccepted adds n to the accepted-input counter.
func (c *Counters) AddInputsAccepted(n uint64) { atomic.AddUint64(&c.InputsAccepted, n) }

// AddInputsDropped adds n to the dropped-input counter.
func (c *Counters) AddInputsDropped(n uint64) { atomic.AddUint64(&c.InputsDropped, n) }

// IncInputsInvalid increments the invalid-input counter by one.
func (c *Counters) IncInputsInvalid() { atomic.AddUint64(&c.InputsInvalid, 1) }

// IncAccumulatorResets increments the count of times the fixed-timestep
// watchdog reset a stalled accumulator to zero (spec.md §8 property 10).
func (c *Counters) IncAccumulatorResets() { atomic.AddUint64(&c.AccumulatorResets, 1) }

// IncPlayersJoined increments the cumulative count of players who have
// joined the room over its lifetime.
func (c *Counters) IncPlayersJoined() { atomic.AddUint64(&c.PlayersJoined, 1) }

// IncPlayersLeft increments the cumulative count of players who have left
// the room over its lifetime.
func (c *Counters) IncPlayersLeft() { atomic.AddUint64(&c.PlayersLeft, 1) }

// AddCollisions adds n to the resolved-collision counter.
func (c *Counters) AddCollisions(n uint64) { atomic.AddUint64(&c.Collisions, n) }

// RecordPing records one ping/pong round trip's observed latency.
func (c *Counters) RecordPing(rtt time.Duration) {
	atomic.AddUint64(&c.PingCount, 1)
	atomic.StoreInt64(&c.lastRTT, int64(rtt))
}

// LastRTT returns the most recently recorded ping round-trip time.
func (c *Counters) LastRTT() time.Duration {
	return time.Duration(atomic.LoadInt64(&c.lastRTT))
}

// Snapshot is a point-in-time, non-atomic copy of Counters safe to marshal
// and persist.
type Snapshot struct {
	Ticks             uint64    `json:"ticks"`
	InputsAccepted    uint64    `json:"inputsAccepted"`
	InputsDropped     uint64    `json:"inputsDropped"`
	InputsInvalid     uint64    `json:"inputsInvalid"`
	AccumulatorResets uint64    `json:"accumulatorResets"`
	PlayersJoined     uint64    `json:"playersJoined"`
	PlayersLeft       uint64    `json:"playersLeft"`
	Collisions        uint64    `json:"collisions"`
	PingCount         uint64    `json:"pingCount"`
	LastRTTMillis     float64   `json:"lastRttMillis"`
	CapturedAt        time.Time `json:"capturedAt"`
}

// Snapshot takes an atomic, consistent-enough point-in-time copy of c.
func (c *Counters) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Ticks:             atomic.LoadUint64(&c.Ticks),
		InputsAccepted:    atomic.LoadUint64(&c.InputsAccepted),
		InputsDropped:     atomic.LoadUint64(&c.InputsDropped),
		InputsInvalid:     atomic.LoadUint64(&c.InputsInvalid),
		AccumulatorResets: atomic.LoadUint64(&c.AccumulatorResets),
		PlayersJoined:     atomic.LoadUint64(&c.PlayersJoined),
		PlayersLeft:       atomic.LoadUint64(&c.PlayersLeft),
		Collisions:        atomic.LoadUint64(&c.Collisions),
		PingCount:         atomic.LoadUint64(&c.PingCount),
		LastRTTMillis:     c.LastRTT().Seconds() * 1000,
		CapturedAt:        now,
	}
}

// CollectionMetrics is the Nakama storage collection metrics snapshots are
// written to, mirroring the teacher's COLLECTION_WORLD_STATE convention.
const CollectionMetrics = "room_metrics"

// PersistSnapshot writes a room's counters snapshot to Nakama storage under
// roomID, public-read/no-write — the same permission pairing the teacher
// used for its world-state writes, appropriate for a read-only
// observability record nobody but the server should ever mutate.
func PersistSnapshot(ctx context.Context, nk runtime.NakamaModule, roomID string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal metrics snapshot: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      CollectionMetrics,
			Key:             roomID,
			UserID:          "",
			Value:           string(data),
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_READ,
		},
	}

	if _, err := nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("persist metrics snapshot for room %s: %w", roomID, err)
	}
	return nil
}

// LoadSnapshot reads back the most recently persisted snapshot for a room,
// if any.
func LoadSnapshot(ctx context.Context, nk runtime.NakamaModule, roomID string) (*Snapshot, error) {
	reads := []*runtime.StorageRead{
		{Collection: CollectionMetrics, Key: roomID, UserID: ""},
	}

	objects, err := nk.StorageRead(ctx, reads)
	if err != nil {
		return nil, fmt.Errorf("read metrics snapshot for room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal metrics snapshot for room %s: %w", roomID, err)
	}
	return &snapshot, nil
}
