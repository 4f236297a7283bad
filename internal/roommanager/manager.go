// Package roommanager generalizes the teacher's single implicit match
// (backend.go's EnsureDefaultMatch, which assumed exactly one
// "open_world_game" match ever existed) into a registry of named room
// types, each with a factory that builds a fresh internal/room.Core, and a
// roomId-keyed table of the rooms currently running. It never imports
// Nakama and is not wired into the production entry point: main.go
// registers internal/room.Match with Nakama directly, and the rooms Nakama
// runs are not tracked here. The registry is plain Go so it can create,
// look up, and dispose of rooms in a single process without a Nakama
// runtime, e.g. for an admin tool or a test harness.
package roommanager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/onebutton-to-space/rocket-room/internal/input"
	"github.com/onebutton-to-space/rocket-room/internal/metrics"
	"github.com/onebutton-to-space/rocket-room/internal/planet"
	"github.com/onebutton-to-space/rocket-room/internal/room"
)

// ErrUnknownRoomType is returned when CreateRoom names a type that was
// never Register-ed.
var ErrUnknownRoomType = errors.New("roommanager: unknown room type")

// ErrUnknownRoom is returned when DisposeRoom/OnMessage names a roomId
// the registry is not tracking.
var ErrUnknownRoom = errors.New("roommanager: unknown room")

// ErrDuplicateRoomType is returned by Register when the type name is
// already registered.
var ErrDuplicateRoomType = errors.New("roommanager: duplicate room type")

// Factory builds the configuration and planet layout for a new room of a
// given type, from caller-supplied parameters (e.g. a world file path, a
// player-count-sensitive config tweak). It mirrors the shape of Nakama's
// own match-creation callback, one layer removed from Nakama itself.
type Factory func(params map[string]interface{}) (room.Config, []planet.Params)

// Registry tracks room types and the rooms created from them.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	rooms     map[string]*entry
}

type entry struct {
	roomType string
	core     *room.Core
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		rooms:     make(map[string]*entry),
	}
}

// Register associates a room type name with the factory used to configure
// rooms created under that name. Returns ErrDuplicateRoomType if the name
// is already registered.
func (r *Registry) Register(roomType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[roomType]; exists {
		return fmt.Errorf("register room type %q: %w", roomType, ErrDuplicateRoomType)
	}
	r.factories[roomType] = factory
	return nil
}

// CreateRoom mints a new room ID, resolves roomType's factory, and starts a
// fresh Core. Returns ErrUnknownRoomType if roomType was never registered.
func (r *Registry) CreateRoom(roomType string, params map[string]interface{}, clock metrics.Clock) (string, *room.Core, error) {
	r.mu.Lock()
	factory, ok := r.factories[roomType]
	r.mu.Unlock()
	if !ok {
		return "", nil, fmt.Errorf("create room of type %q: %w", roomType, ErrUnknownRoomType)
	}

	config, planets := factory(params)
	core := room.NewCore(config, planets, clock)
	roomID := uuid.NewString()

	r.mu.Lock()
	r.rooms[roomID] = &entry{roomType: roomType, core: core}
	r.mu.Unlock()

	return roomID, core, nil
}

// Room looks up a running room's Core by ID.
func (r *Registry) Room(roomID string) (*room.Core, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return e.core, true
}

// DisposeRoom removes a room from the registry. It does not stop or drain
// the room's Core — callers that own a reference to it (e.g. a Nakama
// match holding it in its MatchState) keep working with it; DisposeRoom
// only forgets the registry's bookkeeping so the room ID can no longer be
// looked up or dispatched to.
func (r *Registry) DisposeRoom(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return fmt.Errorf("dispose room %q: %w", roomID, ErrUnknownRoom)
	}
	delete(r.rooms, roomID)
	return nil
}

// RoomCount reports how many rooms the registry is currently tracking.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// OnMessage routes one input message to the named room's Core on behalf of
// playerID. Returns ErrUnknownRoom if roomID is not tracked; otherwise
// propagates whatever error (if any) Core.EnqueueInput returns.
func (r *Registry) OnMessage(roomID, playerID string, msg input.Message) error {
	core, ok := r.Room(roomID)
	if !ok {
		return fmt.Errorf("dispatch message to room %q: %w", roomID, ErrUnknownRoom)
	}
	return core.EnqueueInput(playerID, msg)
}
