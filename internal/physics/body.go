// Package physics implements the fixed-timestep rigid body world: one
// authoritative step of duration Δt per call, built on the teacher's
// rigidbody/vector/polygon primitives (github.com/rudransh61/Physix-go),
// generalized from arcade top-down movement to orbital gravity integration
// with angle control and category/mask collision filtering.
package physics

import (
	"github.com/rudransh61/Physix-go/pkg/rigidbody"
	physixvector "github.com/rudransh61/Physix-go/pkg/vector"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

// Shape enumerates the collider shapes a Body can carry. Polygon hulls cover
// the player ship (PlayerConfig.Vertices); circles cover planets.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapePolygon Shape = "polygon"
)

// SleepTickThreshold is the number of consecutive low-speed steps before a
// body is put to sleep. Implementation-defined per spec (world.step may skip
// sleeping bodies).
const SleepTickThreshold = 30

// SleepSpeedThreshold is the linear speed below which a body is considered
// at rest for sleep-counting purposes.
const SleepSpeedThreshold = 0.05

// Body is the physics-owned rigid body of the data model: position,
// velocity, angle, angular velocity, mass, and collision parameters. It
// wraps *rigidbody.RigidBody (the teacher's struct) for position/velocity/
// mass/shape storage and adds the angle/angular/category fields the
// teacher's arcade movement never needed.
type Body struct {
	ID    string
	RB    *rigidbody.RigidBody
	Shape Shape

	Angle           float64
	AngularVelocity float64

	FrictionAir float64
	Restitution float64

	CollisionCategory uint32
	CollisionMask     uint32

	// Vertices is the hull in body-local space (centered on the origin),
	// used for polygon shapes. Circle shapes use RB.Radius instead.
	Vertices []kernel.Vector

	IsStatic   bool
	IsSleeping bool

	pendingForce kernel.Vector
	sleepTicks   int
}

// NewCircleBody creates a static or dynamic circular body (planets, and any
// round obstacle).
func NewCircleBody(id string, position kernel.Vector, radius, mass float64, isStatic bool) *Body {
	return &Body{
		ID:    id,
		Shape: ShapeCircle,
		RB: &rigidbody.RigidBody{
			Position:  toPhysixVector(position),
			Velocity:  physixvector.Vector{},
			Mass:      mass,
			Shape:     string(ShapeCircle),
			Radius:    radius,
			IsMovable: !isStatic,
		},
		IsStatic:          isStatic,
		CollisionCategory: 0xFFFFFFFF,
		CollisionMask:     0xFFFFFFFF,
	}
}

// NewPolygonBody creates a dynamic body whose hull is the given body-local
// vertices (e.g. PlayerConfig.Vertices).
func NewPolygonBody(id string, position kernel.Vector, vertices []kernel.Vector, mass, frictionAir, restitution float64, category, mask uint32) *Body {
	return &Body{
		ID:    id,
		Shape: ShapePolygon,
		RB: &rigidbody.RigidBody{
			Position:  toPhysixVector(position),
			Velocity:  physixvector.Vector{},
			Mass:      mass,
			Shape:     string(ShapePolygon),
			IsMovable: true,
		},
		Vertices:          vertices,
		FrictionAir:       frictionAir,
		Restitution:       restitution,
		CollisionCategory: category,
		CollisionMask:     mask,
	}
}

// Position returns the body's current position as a kernel.Vector.
func (b *Body) Position() kernel.Vector { return fromPhysixVector(b.RB.Position) }

// Velocity returns the body's current velocity as a kernel.Vector.
func (b *Body) Velocity() kernel.Vector { return fromPhysixVector(b.RB.Velocity) }

// Mass returns the body's mass.
func (b *Body) Mass() float64 { return b.RB.Mass }

// SetPosition overwrites the body's position directly (used for spawn
// placement; not part of the per-step integration path).
func (b *Body) SetPosition(p kernel.Vector) { b.RB.Position = toPhysixVector(p) }

// SetVelocity overwrites the body's velocity directly (used for spawn and
// for collision response).
func (b *Body) SetVelocity(v kernel.Vector) { b.RB.Velocity = toPhysixVector(v) }

// KernelView returns the subset of body state the pure kernel functions
// need.
func (b *Body) KernelView() kernel.KernelBody {
	return kernel.KernelBody{
		Position: b.Position(),
		Velocity: b.Velocity(),
		Mass:     b.Mass(),
	}
}

// worldVertices returns the hull's vertices transformed into world space by
// the body's current angle and position. Only meaningful for polygon
// bodies.
func (b *Body) worldVertices() []kernel.Vector {
	out := make([]kernel.Vector, len(b.Vertices))
	cos, sin := cosSin(b.Angle)
	pos := b.Position()
	for i, v := range b.Vertices {
		rx := v.X*cos - v.Y*sin
		ry := v.X*sin + v.Y*cos
		out[i] = kernel.Vector{X: pos.X + rx, Y: pos.Y + ry}
	}
	return out
}

func toPhysixVector(v kernel.Vector) physixvector.Vector {
	return physixvector.Vector{X: v.X, Y: v.Y}
}

func fromPhysixVector(v physixvector.Vector) kernel.Vector {
	return kernel.Vector{X: v.X, Y: v.Y}
}
