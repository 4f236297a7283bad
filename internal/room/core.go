// Package room implements the Room Core: the authoritative per-match
// simulation loop, generalized from the teacher's GameMatch/GameMatchState
// (game.go). Core itself never touches Nakama — it is driven by plain
// Go values (internal/input.Message, a frame Δt) and returns plain Go
// values (internal/state.PlayerDelta, internal/physics.Pair) so it is
// testable without a runtime.NakamaModule. The Nakama runtime.Match
// adapter lives in match.go.
package room

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/onebutton-to-space/rocket-room/internal/input"
	"github.com/onebutton-to-space/rocket-room/internal/kernel"
	"github.com/onebutton-to-space/rocket-room/internal/metrics"
	"github.com/onebutton-to-space/rocket-room/internal/physics"
	"github.com/onebutton-to-space/rocket-room/internal/planet"
	"github.com/onebutton-to-space/rocket-room/internal/state"
)

// planetBodyPrefix namespaces planet body IDs in the physics world so they
// can never collide with a player ID (a Nakama user ID or test name).
const planetBodyPrefix = "planet:"

// Ack is returned for every input message the Core actually drained and
// applied this tick — every drained message was already validated at
// EnqueueInput time, so every Ack is an approval. The room transport layer
// (match.go) turns these into InputACK messages back to the client.
type Ack struct {
	PlayerID string
	Seq      uint64
}

// Core is the authoritative simulation for one room.
type Core struct {
	config  Config
	world   *physics.World
	planets []planet.Params

	massPoints  []kernel.MassPoint
	atmospheres []kernel.AtmospherePlanet

	inputs      map[string]*input.Queue
	thrustOn    map[string]bool
	cargo       map[string]string
	playerOrder []string

	encoder  *state.Encoder
	counters *metrics.Counters
	clock    metrics.Clock

	createdAt time.Time

	mode        ControlMode
	accumulator float64
	tick        uint64

	mu sync.Mutex // guards mode
}

// NewCore builds an empty room around the given planets, ready to accept
// players.
func NewCore(config Config, planets []planet.Params, clock metrics.Clock) *Core {
	world := physics.NewWorld()

	massPoints := make([]kernel.MassPoint, 0, len(planets))
	atmospheres := make([]kernel.AtmospherePlanet, 0, len(planets))
	for _, p := range planets {
		massPoints = append(massPoints, p.MassPoint())
		atmospheres = append(atmospheres, p.AtmospherePlanet())
		body := physics.NewCircleBody(planetBodyPrefix+p.Name, p.Position, p.Radius, p.Mass, true)
		_ = world.Add(body) // distinct prefix guarantees no collision with a prior planet of the same name being added twice is the only way this errors, which would be an invariant violation at construction time, not a runtime one.
	}

	return &Core{
		config:      config,
		world:       world,
		planets:     planets,
		massPoints:  massPoints,
		atmospheres: atmospheres,
		inputs:      make(map[string]*input.Queue),
		thrustOn:    make(map[string]bool),
		cargo:       make(map[string]string),
		encoder:     state.NewEncoder(config.Thresholds),
		counters:    &metrics.Counters{},
		clock:       clock,
		createdAt:   clock.Now(),
		mode:        ControlRun,
	}
}

// CreatedAt returns the monotonic reference time a joining client uses to
// align its own clock against the room's, echoed in the worldCreationTime
// message every MatchJoin sends.
func (c *Core) CreatedAt() time.Time { return c.createdAt }

// Counters exposes the room's metrics counters for persistence/inspection.
func (c *Core) Counters() *metrics.Counters { return c.counters }

// Clock exposes the room's time source, e.g. for match.go to compute the
// elapsed real time between successive MatchLoop calls.
func (c *Core) Clock() metrics.Clock { return c.clock }

// AddPlayer spawns a new player body in orbit around the room's primary
// planet (the first in the planets list) at an angle that spreads joining
// players around the orbit, with zero planets falling back to a stationary
// spawn at the origin. Returns ErrConflict if the ID is already present.
func (c *Core) AddPlayer(id string) error {
	if _, exists := c.world.Get(id); exists {
		return fmt.Errorf("add player %q: %w", id, ErrConflict)
	}

	pos, vel, angle := c.spawnPose(len(c.playerOrder))
	cfg := c.config.Player
	body := physics.NewPolygonBody(id, pos, cfg.Vertices, cfg.Mass, 0, cfg.Restitution, cfg.CollisionCategory, cfg.CollisionMask)
	body.SetVelocity(vel)

	if err := c.world.Add(body); err != nil {
		return fmt.Errorf("add player %q: %w", id, ErrConflict)
	}
	_ = c.world.SetAngle(id, angle)

	c.inputs[id] = input.NewQueue(c.config.InputQueueCapacity)
	c.thrustOn[id] = false
	c.cargo[id] = ""
	c.playerOrder = append(c.playerOrder, id)
	c.counters.IncPlayersJoined()
	return nil
}

// SetCargo updates a player's cargo label, e.g. from an authorized
// updateState admin command. Returns ErrUnknownSession if the player is not
// present.
func (c *Core) SetCargo(id, cargo string) error {
	if _, ok := c.inputs[id]; !ok {
		return fmt.Errorf("set cargo for %q: %w", id, ErrUnknownSession)
	}
	c.cargo[id] = cargo
	return nil
}

// spawnSlots is how many evenly-spaced orbital slots new players cycle
// through before slots start repeating (harmless — bodies separate via
// collision response on the next tick if two land on the same slot).
const spawnSlots = 8

// spawnPose returns the spawn position, velocity, and initial body angle for
// the index-th joining player. The angle points opposite the planet-to-player
// vector rotated by π/2, so the ship's "up" (the direction thrust along
// angle−π/2 pushes it) faces away from the planet.
func (c *Core) spawnPose(index int) (kernel.Vector, kernel.Vector, float64) {
	if len(c.planets) == 0 {
		return kernel.Vector{}, kernel.Vector{}, 0
	}

	p := c.planets[0]
	theta := 2 * math.Pi * float64(index%spawnSlots) / spawnSlots
	radius := p.Radius + c.config.SpawnAltitude

	pos := kernel.Vector{
		X: p.Position.X + radius*math.Cos(theta),
		Y: p.Position.Y + radius*math.Sin(theta),
	}

	speed := math.Sqrt(kernel.G * p.Mass / radius)
	tangent := kernel.Vector{X: -math.Sin(theta), Y: math.Cos(theta)}
	return pos, tangent.Scale(speed), theta + math.Pi/2
}

// RemovePlayer tears down a player's body, input queue, and delta-encoder
// history. Returns ErrUnknownSession if the ID is not present.
func (c *Core) RemovePlayer(id string) error {
	if _, exists := c.world.Get(id); !exists {
		return fmt.Errorf("remove player %q: %w", id, ErrUnknownSession)
	}
	_ = c.world.Remove(id)
	delete(c.inputs, id)
	delete(c.thrustOn, id)
	delete(c.cargo, id)
	c.encoder.Forget(id)
	for i, candidate := range c.playerOrder {
		if candidate == id {
			c.playerOrder = append(c.playerOrder[:i], c.playerOrder[i+1:]...)
			break
		}
	}
	c.counters.IncPlayersLeft()
	return nil
}

// EnqueueInput validates and enqueues one input message for playerID.
// Validation happens here, synchronously, so the caller can nack a
// malformed message immediately rather than waiting for the next tick.
func (c *Core) EnqueueInput(playerID string, msg input.Message) error {
	q, ok := c.inputs[playerID]
	if !ok {
		return fmt.Errorf("enqueue input for %q: %w", playerID, ErrUnknownSession)
	}

	before := q.Dropped()
	if err := q.Push(msg); err != nil {
		c.counters.IncInputsInvalid()
		return fmt.Errorf("enqueue input for %q: %w", playerID, ErrInvalidInput)
	}
	if q.Dropped() > before {
		c.counters.AddInputsDropped(q.Dropped() - before)
	}
	c.counters.AddInputsAccepted(1)
	return nil
}

// SetControlMode changes the room's run state. Implements roomscript.Host.
// step is a one-shot trigger valid only while the room is already paused;
// requesting it from any other mode is ignored with a warning rather than
// rejected, since it isn't a malformed request, just a no-op one.
func (c *Core) SetControlMode(mode string) error {
	cm := ControlMode(mode)
	switch cm {
	case ControlRun, ControlPause:
		c.mu.Lock()
		c.mode = cm
		c.mu.Unlock()
		return nil
	case ControlStep:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.mode != ControlPause {
			c.Log(fmt.Sprintf("ignoring step request while mode is %q, not paused", c.mode))
			return nil
		}
		c.mode = cm
		return nil
	default:
		return fmt.Errorf("set control mode %q: %w", mode, ErrInvalidInput)
	}
}

// Mode returns the room's current control mode.
func (c *Core) Mode() ControlMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// PlayerCount implements roomscript.Host.
func (c *Core) PlayerCount() int { return len(c.playerOrder) }

// Log implements roomscript.Host as a no-op by default; match.go overrides
// the concrete Host it builds for roomscript with one that writes through
// the Nakama logger, since Core itself holds no logger.
func (c *Core) Log(string) {}

// Advance pushes the fixed-timestep accumulator forward by frameDt (real
// elapsed time since the previous Advance call) and runs as many fixed
// ticks as have accumulated, honoring the current control mode. If the
// accumulator has stalled past WatchdogMultiple fixed ticks' worth of time,
// it is reset to zero rather than stepped through, so a long stall produces
// at most one tick on the next call instead of a "spiral of death" that
// tries to replay arbitrarily much missed time in one call.
//
// A non-nil error return is an ErrInternalInvariant: the room's own
// bookkeeping has diverged from an invariant it relies on, a bug rather than
// a client mistake, and the caller should fail the room fast instead of
// broadcasting from state that can no longer be trusted.
func (c *Core) Advance(frameDt float64) ([]state.PlayerDelta, []physics.Pair, []Ack, error) {
	dt := c.config.FixedDeltaTime()
	watchdogCap := dt * c.config.WatchdogMultiple

	c.accumulator += frameDt
	if c.accumulator > watchdogCap {
		c.accumulator = 0
		c.counters.IncAccumulatorResets()
	}

	var deltas []state.PlayerDelta
	var collisions []physics.Pair
	var acks []Ack

	for c.accumulator >= dt {
		mode := c.Mode()
		if mode == ControlPause {
			c.accumulator = 0
			break
		}

		prevTick := c.tick
		tickDeltas, tickCollisions, tickAcks := c.tickOnce(dt)
		deltas = append(deltas, tickDeltas...)
		collisions = append(collisions, tickCollisions...)
		acks = append(acks, tickAcks...)
		c.accumulator -= dt

		if err := c.checkInvariants(prevTick); err != nil {
			return deltas, collisions, acks, err
		}

		if mode == ControlStep {
			_ = c.SetControlMode(string(ControlPause))
			break
		}
	}

	return deltas, collisions, acks, nil
}

// checkInvariants verifies, after a tick, that the room's per-player
// bookkeeping maps are still in lockstep and that physicsStep advanced
// strictly (spec.md §8 properties 1 and 2). A violation is never expected in
// production; it signals a logic bug rather than bad client input.
func (c *Core) checkInvariants(prevTick uint64) error {
	n := len(c.playerOrder)
	if len(c.inputs) != n || len(c.thrustOn) != n || len(c.cargo) != n {
		return fmt.Errorf("player bookkeeping diverged (players=%d inputs=%d thrustOn=%d cargo=%d): %w",
			n, len(c.inputs), len(c.thrustOn), len(c.cargo), ErrInternalInvariant)
	}
	if c.tick <= prevTick {
		return fmt.Errorf("physicsStep failed to advance past %d: %w", prevTick, ErrInternalInvariant)
	}
	return nil
}

// drainAcks drains every player's input queue and applies each message,
// returning one Ack per message applied. Called once per fixed tick from
// tickOnce.
func (c *Core) drainAcks() []Ack {
	var acks []Ack
	for _, id := range c.playerOrder {
		q, ok := c.inputs[id]
		if !ok {
			continue
		}
		for _, msg := range q.Drain() {
			switch msg.Type {
			case input.ThrustStart:
				c.thrustOn[id] = true
			case input.ThrustStop:
				c.thrustOn[id] = false
			case input.SetAngle:
				_ = c.world.SetAngle(id, msg.Angle)
			}
			acks = append(acks, Ack{PlayerID: id, Seq: msg.Seq})
		}
	}
	return acks
}

func (c *Core) tickOnce(dt float64) ([]state.PlayerDelta, []physics.Pair, []Ack) {
	acks := c.drainAcks()

	for _, id := range c.playerOrder {
		body, ok := c.world.Get(id)
		if !ok {
			continue
		}
		view := body.KernelView()

		force := kernel.Gravity(view, c.massPoints)
		density := kernel.DensityAt(view.Position, c.atmospheres)
		force = force.Add(kernel.AirResistance(view, density))

		if c.thrustOn[id] {
			// Thrust fires along angle−π/2 (the ship's "up"), not along angle
			// itself: {sin(angle), −cos(angle)}.
			sin, cos := math.Sin(body.Angle), math.Cos(body.Angle)
			thrustForce := c.config.Player.ThrustForce
			force = force.Add(kernel.Vector{X: sin * thrustForce, Y: -cos * thrustForce})
		}

		_ = c.world.ApplyForce(id, force)
		_ = c.world.SetAngularVelocity(id, kernel.AngularDamping(body.AngularVelocity, c.config.AngularDamping))
	}

	c.world.Step(dt)
	c.tick++
	c.counters.IncTicks()

	collisions := c.world.BodiesCollidingThisStep()
	c.counters.AddCollisions(uint64(len(collisions)))

	states := make([]state.PlayerState, 0, len(c.playerOrder))
	for _, id := range c.playerOrder {
		body, ok := c.world.Get(id)
		if !ok {
			continue
		}
		states = append(states, state.PlayerState{
			ID:              id,
			Position:        body.Position(),
			Velocity:        body.Velocity(),
			Angle:           body.Angle,
			AngularVelocity: body.AngularVelocity,
			IsSleeping:      body.IsSleeping,
			ThrustOn:        c.thrustOn[id],
			Cargo:           c.cargo[id],
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })

	return c.encoder.Encode(states), collisions, acks
}

// Tick returns the number of fixed ticks the room has run.
func (c *Core) Tick() uint64 { return c.tick }

// Snapshot returns every player's full, un-thresholded current state — used
// for a joining player's initial world_state broadcast, which must never be
// a partial delta.
func (c *Core) Snapshot() []state.PlayerState {
	states := make([]state.PlayerState, 0, len(c.playerOrder))
	for _, id := range c.playerOrder {
		body, ok := c.world.Get(id)
		if !ok {
			continue
		}
		states = append(states, state.PlayerState{
			ID:              id,
			Position:        body.Position(),
			Velocity:        body.Velocity(),
			Angle:           body.Angle,
			AngularVelocity: body.AngularVelocity,
			IsSleeping:      body.IsSleeping,
			ThrustOn:        c.thrustOn[id],
			Cargo:           c.cargo[id],
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Planets exposes the room's planet layout, e.g. for a join broadcast.
func (c *Core) Planets() []planet.Params { return c.planets }
