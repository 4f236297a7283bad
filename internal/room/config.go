package room

import (
	"github.com/onebutton-to-space/rocket-room/internal/kernel"
	"github.com/onebutton-to-space/rocket-room/internal/state"
)

// ControlMode is the room's run state, generalized from the teacher's
// always-on "open world" match (game.go's MatchInit comment: "always
// active") into an explicit pause/run/step machine an operator can drive
// through internal/roomscript.
type ControlMode string

const (
	// ControlRun advances the simulation every tick. The default.
	ControlRun ControlMode = "run"
	// ControlPause halts the simulation; accumulated frame time is
	// discarded rather than queued, so resuming does not burst-replay a
	// long pause.
	ControlPause ControlMode = "pause"
	// ControlStep advances exactly one fixed tick and then reverts to
	// ControlPause, for frame-by-frame debugging.
	ControlStep ControlMode = "step"
)

// DefaultPlayerThrustForce is the magnitude (in the same force units as
// internal/kernel.Gravity's output) applied along angle−π/2 (the ship's
// "up") while thrust is on. Resolves the spec's open PLAYER_THRUST_FORCE
// question: configurable per room, defaulting to a value tuned against
// internal/kernel's G so a ship can counteract a close low-altitude orbit's
// gravity.
const DefaultPlayerThrustForce = 4000.0

// DefaultAngularDamping is the fraction of angular velocity removed each
// tick by internal/kernel.AngularDamping.
const DefaultAngularDamping = 0.08

// DefaultSpawnAltitude is how far above a planet's surface new players
// enter orbit.
const DefaultSpawnAltitude = 150.0

// DefaultWatchdogMultiple is the watchdog limit on the fixed-timestep
// accumulator, in ticks' worth of real time. When a stalled process (GC
// pause, debugger breakpoint, slow host) pushes the accumulator past it,
// Advance discards the accumulated time and runs no ticks for that call,
// instead of replaying potentially thousands of ticks in one Advance call.
const DefaultWatchdogMultiple = 10.0

// DefaultAdminScriptsDir is where an admin-enabled room looks up named Lua
// scripts named by an authorized updateState/admin command. Clients never
// send Lua source directly — only the name of a script the operator has
// already placed under this directory — so an authorized admin can only
// run code the server operator vetted ahead of time, not arbitrary code
// they upload on the fly.
const DefaultAdminScriptsDir = "scripts/admin"

// PlayerConfig parameterizes the physical body every player spawns with.
type PlayerConfig struct {
	Mass              float64
	Vertices          []kernel.Vector
	Restitution       float64
	ThrustForce       float64
	CollisionCategory uint32
	CollisionMask     uint32
}

// DefaultPlayerConfig is a small ship: a 20x20 unit square hull, light
// enough for thrust to matter, bouncy enough that a hard landing is
// survivable but not free.
var DefaultPlayerConfig = PlayerConfig{
	Mass: 10,
	Vertices: []kernel.Vector{
		{X: -10, Y: -10},
		{X: 10, Y: -10},
		{X: 10, Y: 10},
		{X: -10, Y: 10},
	},
	Restitution:       0.3,
	ThrustForce:        DefaultPlayerThrustForce,
	CollisionCategory: 0x1,
	CollisionMask:     0xFFFFFFFF,
}

// Config is the Room Core's full configuration: tick rate, admin gating,
// per-player physical parameters, and the delta-encoder thresholds.
type Config struct {
	TickRate           int
	Admin              bool
	AdminScriptsDir    string
	InputQueueCapacity int
	Player             PlayerConfig
	Thresholds         state.Thresholds
	AngularDamping     float64
	SpawnAltitude      float64
	WatchdogMultiple   float64
}

// DefaultConfig is the configuration a room starts with absent any
// room-specific overrides.
func DefaultConfig() Config {
	return Config{
		TickRate:           60,
		Admin:              false,
		AdminScriptsDir:    DefaultAdminScriptsDir,
		InputQueueCapacity: 0, // 0 -> internal/input.DefaultCapacity
		Player:             DefaultPlayerConfig,
		Thresholds:         state.DefaultThresholds,
		AngularDamping:     DefaultAngularDamping,
		SpawnAltitude:      DefaultSpawnAltitude,
		WatchdogMultiple:   DefaultWatchdogMultiple,
	}
}

// FixedDeltaTime returns the duration of one simulation tick in seconds.
func (c Config) FixedDeltaTime() float64 {
	if c.TickRate <= 0 {
		return 1.0 / 60.0
	}
	return 1.0 / float64(c.TickRate)
}
