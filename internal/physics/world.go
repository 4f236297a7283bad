package physics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

// ErrDuplicateBody is returned by Add when a body with the same ID is
// already present in the world.
var ErrDuplicateBody = errors.New("physics: duplicate body id")

// ErrUnknownBody is returned by any body-scoped operation (ApplyForce,
// SetAngle, Remove, ...) given an ID the world does not hold.
var ErrUnknownBody = errors.New("physics: unknown body id")

// World is the authoritative rigid-body simulation for one room: every
// dynamic body (players) and every static body (planets) lives here, and a
// single World.Step(Δt) call advances all of them one fixed tick.
//
// The teacher's PhysicsEngine carried its own gravity vector and a
// rectangular world-bounds box appropriate for a top-down tile map; neither
// concept survives here. Gravity is not a world constant — it is computed
// per body from the room's planet mass points via internal/kernel.Gravity
// and applied through ApplyForce before each Step, the same way the room
// applies thrust.
type World struct {
	bodies map[string]*Body
	order  []string

	collisions []Pair
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{bodies: make(map[string]*Body)}
}

// Add inserts a body into the world. Returns ErrDuplicateBody if a body with
// the same ID already exists.
func (w *World) Add(b *Body) error {
	if _, exists := w.bodies[b.ID]; exists {
		return fmt.Errorf("add body %q: %w", b.ID, ErrDuplicateBody)
	}
	w.bodies[b.ID] = b
	w.order = append(w.order, b.ID)
	return nil
}

// Remove deletes a body from the world. Returns ErrUnknownBody if it is not
// present.
func (w *World) Remove(id string) error {
	if _, exists := w.bodies[id]; !exists {
		return fmt.Errorf("remove body %q: %w", id, ErrUnknownBody)
	}
	delete(w.bodies, id)
	for i, candidate := range w.order {
		if candidate == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the body with the given ID, if present.
func (w *World) Get(id string) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// Len reports how many bodies the world currently holds.
func (w *World) Len() int { return len(w.bodies) }

// Each invokes fn for every body in stable insertion order. Used by the room
// to build snapshots without imposing iteration-order nondeterminism on
// callers.
func (w *World) Each(fn func(b *Body)) {
	for _, id := range w.order {
		fn(w.bodies[id])
	}
}

// ApplyForce accumulates a force (e.g. gravity, air resistance, thrust) onto
// a body for the next Step call. Multiple calls before a Step sum. Waking a
// sleeping body is a side effect of any non-zero force.
func (w *World) ApplyForce(id string, force kernel.Vector) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("apply force to %q: %w", id, ErrUnknownBody)
	}
	b.pendingForce = b.pendingForce.Add(force)
	return nil
}

// SetAngle overwrites a body's facing angle directly — this world never
// integrates angle from angular velocity; angle is entirely input-driven
// (the room calls this in response to a set_angle message) and angular
// velocity is a cosmetic, damped-only quantity synced to clients.
func (w *World) SetAngle(id string, theta float64) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("set angle on %q: %w", id, ErrUnknownBody)
	}
	b.Angle = kernel.WrapAngle(theta)
	return nil
}

// SetAngularVelocity overwrites a body's angular velocity directly (the
// room calls this after running kernel.AngularDamping each tick).
func (w *World) SetAngularVelocity(id string, omega float64) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("set angular velocity on %q: %w", id, ErrUnknownBody)
	}
	b.AngularVelocity = omega
	return nil
}

// Step advances every dynamic body by Δt using semi-implicit Euler
// integration of the forces accumulated since the previous Step, then runs
// broad+narrow phase collision detection and resolves overlaps. Static
// bodies never move. Sleeping bodies with no pending force are skipped
// entirely, matching the teacher's approach of only updating movable
// objects (PhysicsEngine.UpdatePhysics iterated IsMovable objects) but
// adding a sleep threshold the arcade version never needed.
func (w *World) Step(dt float64) {
	w.collisions = w.collisions[:0]

	for _, id := range w.order {
		b := w.bodies[id]
		if b.IsStatic {
			b.pendingForce = kernel.Vector{}
			continue
		}

		force := b.pendingForce
		b.pendingForce = kernel.Vector{}

		awake := force.LengthSquared() > 0
		if awake {
			b.IsSleeping = false
			b.sleepTicks = 0
		}
		if b.IsSleeping {
			continue
		}

		v := b.Velocity()
		if b.Mass() > 0 {
			v = v.Add(force.Scale(dt / b.Mass()))
		}
		b.SetVelocity(v)
		b.SetPosition(b.Position().Add(v.Scale(dt)))

		if v.Length() < SleepSpeedThreshold {
			b.sleepTicks++
			if b.sleepTicks >= SleepTickThreshold {
				b.IsSleeping = true
			}
		} else {
			b.sleepTicks = 0
		}
	}

	w.detectAndResolveCollisions()
}

func (w *World) detectAndResolveCollisions() {
	ids := w.order
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := w.bodies[ids[i]], w.bodies[ids[j]]
			if !collisionFilter(a, b) {
				continue
			}
			if !aabbOverlap(a, b) {
				continue
			}
			info := detectCollision(a, b)
			if !info.collided {
				continue
			}

			idA, idB := a.ID, b.ID
			if idB < idA {
				idA, idB = idB, idA
			}
			w.collisions = append(w.collisions, Pair{A: idA, B: idB, ContactPoint: info.contactPoint})

			resolveCollision(a, b, info)
			a.IsSleeping = false
			b.IsSleeping = false
			a.sleepTicks = 0
			b.sleepTicks = 0
		}
	}

	sort.Slice(w.collisions, func(i, j int) bool {
		if w.collisions[i].A != w.collisions[j].A {
			return w.collisions[i].A < w.collisions[j].A
		}
		return w.collisions[i].B < w.collisions[j].B
	})
}

// BodiesCollidingThisStep returns the collision pairs detected during the
// most recent Step call, sorted for determinism.
func (w *World) BodiesCollidingThisStep() []Pair {
	return w.collisions
}
