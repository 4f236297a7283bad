package physics

import (
	"math"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

// Pair identifies two bodies that overlapped during the most recent step,
// along with the contact point used for resolution. Order is stable
// (A.ID < B.ID) so callers can deduplicate.
type Pair struct {
	A, B         string
	ContactPoint kernel.Vector
}

type collisionInfo struct {
	collided     bool
	mtv          kernel.Vector
	depth        float64
	contactPoint kernel.Vector
}

// collisionFilter reports whether a and b are eligible to collide at all,
// honoring Matter.js-style category/mask bitmasks: each body's category must
// appear in the other's mask.
func collisionFilter(a, b *Body) bool {
	if a.IsStatic && b.IsStatic {
		return false
	}
	return a.CollisionCategory&b.CollisionMask != 0 && b.CollisionCategory&a.CollisionMask != 0
}

func detectCollision(a, b *Body) collisionInfo {
	if a.Shape == ShapeCircle && b.Shape == ShapeCircle {
		return detectCircleCollision(a, b)
	}
	return detectPolygonCollision(a, b)
}

func detectCircleCollision(a, b *Body) collisionInfo {
	pa, pb := a.Position(), b.Position()
	d := pb.Sub(pa)
	distSq := d.LengthSquared()
	radiusSum := a.RB.Radius + b.RB.Radius

	if distSq > radiusSum*radiusSum {
		return collisionInfo{collided: false}
	}

	dist := math.Sqrt(distSq)
	if dist < 1e-4 {
		return collisionInfo{
			collided:     true,
			mtv:          kernel.Vector{X: a.RB.Radius, Y: 0},
			depth:        radiusSum,
			contactPoint: pa,
		}
	}

	overlap := radiusSum - dist
	direction := kernel.Vector{X: d.X / dist, Y: d.Y / dist}
	contact := pa.Add(direction.Scale(a.RB.Radius))

	return collisionInfo{
		collided:     true,
		mtv:          direction.Scale(overlap),
		depth:        overlap,
		contactPoint: contact,
	}
}

func polygonVertices(b *Body) []kernel.Vector {
	switch b.Shape {
	case ShapeCircle:
		return circlePolygon(b.Position(), b.RB.Radius, 16)
	default:
		if len(b.Vertices) > 0 {
			return b.worldVertices()
		}
		return nil
	}
}

func circlePolygon(center kernel.Vector, radius float64, n int) []kernel.Vector {
	if n < 3 {
		n = 8
	}
	out := make([]kernel.Vector, n)
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		theta := float64(i) * step
		cos, sin := math.Cos(theta), math.Sin(theta)
		out[i] = kernel.Vector{X: center.X + radius*cos, Y: center.Y + radius*sin}
	}
	return out
}

func polygonEdges(vertices []kernel.Vector) []kernel.Vector {
	edges := make([]kernel.Vector, len(vertices))
	for i := range vertices {
		edges[i] = vertices[(i+1)%len(vertices)].Sub(vertices[i])
	}
	return edges
}

func polygonNormals(edges []kernel.Vector) []kernel.Vector {
	normals := make([]kernel.Vector, len(edges))
	for i, e := range edges {
		normals[i] = kernel.Vector{X: -e.Y, Y: e.X}.Normalize()
	}
	return normals
}

func projectPolygon(vertices []kernel.Vector, axis kernel.Vector) (float64, float64) {
	min := axis.Dot(vertices[0])
	max := min
	for _, v := range vertices[1:] {
		p := axis.Dot(v)
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}

func overlapAmount(min1, max1, min2, max2 float64) (bool, float64) {
	if min1 > max2 || min2 > max1 {
		return false, 0
	}
	o1 := max2 - min1
	o2 := max1 - min2
	if o1 < o2 {
		return true, o1
	}
	return true, o2
}

// detectPolygonCollision runs a separating-axis test across both hulls
// (circles are approximated as 16-gons), the same algorithm the teacher used
// for tile/player collision, generalized to work from Body hulls rather than
// a side registry keyed by rigidbody pointer.
func detectPolygonCollision(a, b *Body) collisionInfo {
	verticesA := polygonVertices(a)
	verticesB := polygonVertices(b)
	if len(verticesA) == 0 || len(verticesB) == 0 {
		return collisionInfo{collided: false}
	}

	axes := append(polygonNormals(polygonEdges(verticesA)), polygonNormals(polygonEdges(verticesB))...)

	smallestOverlap := math.MaxFloat64
	var smallestAxis kernel.Vector

	for _, axis := range axes {
		minA, maxA := projectPolygon(verticesA, axis)
		minB, maxB := projectPolygon(verticesB, axis)

		ok, overlap := overlapAmount(minA, maxA, minB, maxB)
		if !ok {
			return collisionInfo{collided: false}
		}
		if overlap < smallestOverlap {
			smallestOverlap = overlap
			smallestAxis = axis
		}
	}

	direction := b.Position().Sub(a.Position())
	if direction.Dot(smallestAxis) < 0 {
		smallestAxis = smallestAxis.Scale(-1)
	}

	pa, pb := a.Position(), b.Position()
	return collisionInfo{
		collided:     true,
		mtv:          smallestAxis.Scale(smallestOverlap),
		depth:        smallestOverlap,
		contactPoint: kernel.Vector{X: (pa.X + pb.X) / 2, Y: (pa.Y + pb.Y) / 2},
	}
}

// resolveCollision separates the two bodies along the MTV and applies a
// restitution-scaled normal impulse. A static body never moves or absorbs
// velocity change.
func resolveCollision(a, b *Body, info collisionInfo) {
	if !info.collided {
		return
	}

	moveA := !a.IsStatic
	moveB := !b.IsStatic

	switch {
	case moveA && moveB:
		a.SetPosition(a.Position().Sub(info.mtv.Scale(0.5)))
		b.SetPosition(b.Position().Add(info.mtv.Scale(0.5)))
		applyImpulse(a, b, info)
	case moveA && !moveB:
		a.SetPosition(a.Position().Sub(info.mtv))
		reflectAgainstStatic(a, info.mtv)
	case !moveA && moveB:
		b.SetPosition(b.Position().Add(info.mtv))
		reflectAgainstStatic(b, kernel.Vector{X: -info.mtv.X, Y: -info.mtv.Y})
	}
}

// reflectAgainstStatic bounces a dynamic body off an immovable surface:
// the velocity component along the separation normal is reflected and
// scaled by the body's restitution, the tangential component (sliding
// along the surface) is preserved.
func reflectAgainstStatic(b *Body, mtv kernel.Vector) {
	normal := mtv.Normalize()
	if normal == (kernel.Vector{}) {
		return
	}
	v := b.Velocity()
	vn := v.Dot(normal)
	if vn >= 0 {
		return
	}
	restitution := b.Restitution
	normalComponent := normal.Scale(vn)
	tangential := v.Sub(normalComponent)
	b.SetVelocity(tangential.Sub(normalComponent.Scale(restitution)))
}

func applyImpulse(a, b *Body, info collisionInfo) {
	normal := info.mtv.Normalize()
	if normal == (kernel.Vector{}) {
		return
	}
	relVelocity := b.Velocity().Sub(a.Velocity())
	velAlongNormal := relVelocity.Dot(normal)
	if velAlongNormal > 0 {
		return
	}

	restitution := (a.Restitution + b.Restitution) / 2
	impulseScalar := -(1 + restitution) * velAlongNormal
	impulseScalar /= 1/a.Mass() + 1/b.Mass()

	impulse := normal.Scale(impulseScalar)
	a.SetVelocity(a.Velocity().Sub(impulse.Scale(1 / a.Mass())))
	b.SetVelocity(b.Velocity().Add(impulse.Scale(1 / b.Mass())))
}

func cosSin(theta float64) (float64, float64) {
	return math.Cos(theta), math.Sin(theta)
}

func aabbOverlap(a, b *Body) bool {
	halfA := halfExtents(a)
	halfB := halfExtents(b)
	pa, pb := a.Position(), b.Position()

	if math.Abs(pa.X-pb.X) > halfA.X+halfB.X {
		return false
	}
	if math.Abs(pa.Y-pb.Y) > halfA.Y+halfB.Y {
		return false
	}
	return true
}

func halfExtents(b *Body) kernel.Vector {
	if b.Shape == ShapeCircle {
		return kernel.Vector{X: b.RB.Radius, Y: b.RB.Radius}
	}
	if len(b.Vertices) == 0 {
		return kernel.Vector{}
	}
	maxX, maxY := 0.0, 0.0
	for _, v := range b.Vertices {
		if math.Abs(v.X) > maxX {
			maxX = math.Abs(v.X)
		}
		if math.Abs(v.Y) > maxY {
			maxY = math.Abs(v.Y)
		}
	}
	return kernel.Vector{X: maxX, Y: maxY}
}
