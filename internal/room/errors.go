package room

import "errors"

// Sentinel errors every Room Core operation can return, wrapped with
// fmt.Errorf("...: %w", ...) so callers can errors.Is against a stable
// identity regardless of the specific message.
var (
	// ErrConflict is returned when an operation would create a duplicate —
	// adding a player ID that already has a body in the world, for instance.
	ErrConflict = errors.New("room: conflict")

	// ErrUnknownSession is returned when an operation names a player ID the
	// room has no record of (already left, or never joined).
	ErrUnknownSession = errors.New("room: unknown session")

	// ErrInvalidInput is returned when a player message fails validation —
	// an unknown message type, or a non-finite angle.
	ErrInvalidInput = errors.New("room: invalid input")

	// ErrConfigLoad marks a failure to build a room's starting configuration
	// (e.g. a malformed world file). MatchInit wraps the load error with it
	// in its warning log line and starts the room with no planets; no
	// function returns it.
	ErrConfigLoad = errors.New("room: config load failed")

	// ErrInternalInvariant is returned when the room detects its own state
	// has diverged from an invariant it relies on — a bug, not a client
	// mistake, and never expected to surface in production.
	ErrInternalInvariant = errors.New("room: internal invariant violated")
)
