// Package planet generates deterministic planet physical parameters from a
// name, and loads a room's planet layout from a world file — the
// generalization of the teacher's map_loader.go, which parsed a Tiled JSON
// tile map into colliders and spawn points. There is no tile map in this
// game; a "world file" instead lists named planet seeds (name + orbital
// position), and every other physical property — radius, mass, atmosphere —
// is derived deterministically from the name itself, so two rooms
// generated from the same seed list always produce byte-identical planets
// without having to round-trip every field through the file.
package planet

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"math/rand"
	"os"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

// Seed is one entry of a world file: a planet's name and the orbital
// position it sits at, matching the spec's flat {"name","x","y"} wire
// format rather than a nested position object. Everything else about the
// planet is derived from Name by Generate.
type Seed struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Params is a fully generated planet: enough to seed both the gravity
// kernel (as a kernel.MassPoint) and the atmosphere kernel (as a
// kernel.AtmospherePlanet), plus a Radius used for collider construction in
// internal/physics.
type Params struct {
	Name             string
	Position         kernel.Vector
	Radius           float64
	Mass             float64
	AtmosphereHeight float64
	SurfaceDensity   float64
}

// MassPoint projects Params down to the gravity kernel's input shape.
func (p Params) MassPoint() kernel.MassPoint {
	return kernel.MassPoint{Position: p.Position, Mass: p.Mass}
}

// AtmospherePlanet projects Params down to the atmosphere kernel's input
// shape.
func (p Params) AtmospherePlanet() kernel.AtmospherePlanet {
	return kernel.AtmospherePlanet{
		Position:         p.Position,
		Radius:           p.Radius,
		AtmosphereHeight: p.AtmosphereHeight,
		SurfaceDensity:   p.SurfaceDensity,
	}
}

// Generation ranges. Mass and radius scale together (denser planets are
// both bigger and heavier) so gravity strength stays visually plausible
// relative to a planet's rendered size.
const (
	minRadius = 300.0
	maxRadius = 900.0

	minMassPerRadius = 8e3
	maxMassPerRadius = 2.5e4

	minAtmosphere = 0.0
	maxAtmosphere = 250.0

	minSurfaceDensity = 0.5
	maxSurfaceDensity = 2.5
)

// Generate deterministically derives a planet's physical parameters from
// its name and the position it should sit at. The same name always yields
// the same radius/mass/atmosphere, seeded by hashing the name's bytes with
// FNV-1a into a dedicated *rand.Rand — never the shared/global rand source,
// so generation in one room never perturbs another's sequence.
func Generate(name string, position kernel.Vector) Params {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	seed := int64(h.Sum64())
	rng := rand.New(rand.NewSource(seed))

	radius := lerp(minRadius, maxRadius, rng.Float64())
	massPerRadius := lerp(minMassPerRadius, maxMassPerRadius, rng.Float64())
	mass := radius * massPerRadius

	atmosphere := 0.0
	if rng.Float64() < 0.7 { // most planets have some atmosphere
		atmosphere = lerp(minAtmosphere, maxAtmosphere, rng.Float64())
	}
	density := lerp(minSurfaceDensity, maxSurfaceDensity, rng.Float64())

	return Params{
		Name:             name,
		Position:         position,
		Radius:           radius,
		Mass:             mass,
		AtmosphereHeight: atmosphere,
		SurfaceDensity:   density,
	}
}

func lerp(lo, hi, t float64) float64 {
	if math.IsNaN(t) {
		t = 0
	}
	return lo + (hi-lo)*t
}

// LoadWorldFile reads a JSON array of Seed entries from path and expands
// each into full Params via Generate. A missing or malformed file degrades
// to an empty slice rather than panicking — a room with no planets is a
// valid (if dull) room — but the read/parse error is still returned so the
// caller can log it; callers should treat a non-nil error here as a
// warning, not a reason to refuse starting the room.
func LoadWorldFile(path string) ([]Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds []Seed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}

	params := make([]Params, 0, len(seeds))
	for _, s := range seeds {
		params = append(params, Generate(s.Name, kernel.Vector{X: s.X, Y: s.Y}))
	}
	return params, nil
}
