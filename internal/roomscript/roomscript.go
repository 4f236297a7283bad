// Package roomscript runs short, admin-only Lua scripts against a room,
// generalized from the teacher's script_engine.go. The teacher pooled Lua
// states to run per-object interaction scripts (open a door, trigger a
// trap) referenced by path from a tile map; this game has no tile map and
// no per-object scripting surface, so the same pooled-VM mechanism is
// repointed at a much smaller admin API: inspect and nudge a running room
// from an operator console, gated by internal/room's Config.Admin.
package roomscript

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Host is the room-side surface a script may observe or mutate. The room
// package implements this; roomscript only depends on the interface so it
// never needs to import internal/room (which imports roomscript, not the
// other way around).
type Host interface {
	PlayerCount() int
	SetControlMode(mode string) error
	SetCargo(playerID, cargo string) error
	Log(message string)
}

// Engine pools *lua.LState instances across Execute calls the same way the
// teacher's ScriptEngine did, so repeated admin commands do not pay Lua's
// VM-allocation cost every time.
type Engine struct {
	pool sync.Pool
}

// NewEngine creates an engine with an empty VM pool.
func NewEngine() *Engine {
	return &Engine{
		pool: sync.Pool{
			New: func() any {
				return lua.NewState(lua.Options{SkipOpenLibs: false})
			},
		},
	}
}

// Execute runs source against host: `room_player_count()` returns the
// current player count, `room_set_control_mode(mode)` requests a control
// mode change (propagating any rejection from Host as a Lua error),
// `room_set_cargo(playerId, cargo)` implements the spec's authorized
// updateState debug path by relabeling a player's cargo, and `room_log(message)`
// writes an operator-visible log line. Unlike the teacher's Execute, the
// borrowed state is returned to the pool rather than closed, so the pool
// actually amortizes VM construction across calls.
func (e *Engine) Execute(source string, host Host) error {
	L := e.pool.Get().(*lua.LState)
	defer e.pool.Put(L)
	defer L.SetGlobal("room_player_count", lua.LNil)
	defer L.SetGlobal("room_set_control_mode", lua.LNil)
	defer L.SetGlobal("room_set_cargo", lua.LNil)
	defer L.SetGlobal("room_log", lua.LNil)

	register := func(name string, fn lua.LGFunction) {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	register("room_player_count", func(L *lua.LState) int {
		L.Push(lua.LNumber(host.PlayerCount()))
		return 1
	})

	register("room_set_control_mode", func(L *lua.LState) int {
		mode := L.CheckString(1)
		if err := host.SetControlMode(mode); err != nil {
			L.RaiseError("set control mode %q: %v", mode, err)
			return 0
		}
		return 0
	})

	register("room_set_cargo", func(L *lua.LState) int {
		playerID := L.CheckString(1)
		cargo := L.CheckString(2)
		if err := host.SetCargo(playerID, cargo); err != nil {
			L.RaiseError("set cargo for %q: %v", playerID, err)
			return 0
		}
		return 0
	})

	register("room_log", func(L *lua.LState) int {
		host.Log(L.CheckString(1))
		return 0
	})

	if err := L.DoString(source); err != nil {
		return fmt.Errorf("roomscript: %w", err)
	}
	return nil
}
