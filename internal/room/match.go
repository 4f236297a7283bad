package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/onebutton-to-space/rocket-room/internal/input"
	"github.com/onebutton-to-space/rocket-room/internal/metrics"
	"github.com/onebutton-to-space/rocket-room/internal/planet"
	"github.com/onebutton-to-space/rocket-room/internal/roomscript"
	"github.com/onebutton-to-space/rocket-room/internal/state"
)

// OpCode constants for the room's wire protocol, generalized from the
// teacher's game.go OpCode block (world_state/world_update/input_ack) with
// the control-plane codes (control mode, ping/pong, admin script) the
// teacher's always-on single map never needed.
const (
	OpCodeWorldState        = 1  // full snapshot, sent on join
	OpCodeWorldUpdate       = 2  // per-tick threshold-gated deltas
	OpCodeInputACK          = 3  // ack/nack for one input message
	OpCodePlayerInput       = 4  // client -> server: thrust_start/thrust_stop/set_angle
	OpCodeSetControlMode    = 5  // client -> server: pause/run/step (normal client message, not admin-gated)
	OpCodePing              = 6  // client -> server: RTT probe
	OpCodePong              = 7  // server -> client: RTT probe reply
	OpCodeAdminScript       = 8  // client -> server: admin-only Lua command
	OpCodeAdminResult       = 9  // server -> client: admin command result/error
	OpCodeWorldCreationTime = 10 // server -> client: room's creation reference, sent once per join
)

// MetricsPersistInterval is how many ticks elapse between automatic
// metrics snapshot persists, mirroring the teacher's PeriodicSave cadence
// of every 300 ticks (5 seconds at 60Hz).
const MetricsPersistInterval = 300

// Match implements runtime.Match. It is a thin Nakama adapter over Core —
// every rule of the simulation lives in core.go; this file only does wire
// (de)serialization and presence bookkeeping, the same split of
// responsibility the teacher's game.go had with InputProcessor/PhysicsEngine,
// just with Core absorbing what those two used to do separately.
type Match struct{}

// MatchState is the state runtime.Match callbacks thread through: the Core
// simulation, the room's ID (for metrics persistence), and presence
// bookkeeping the Core itself doesn't need to know about.
type MatchState struct {
	core         *Core
	roomID       string
	presences    map[string]runtime.Presence
	lastTickTime time.Time
	scriptEngine *roomscript.Engine
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type playerInputWire struct {
	Type  string  `json:"type"`
	Seq   uint64  `json:"seq"`
	Angle float64 `json:"angle,omitempty"`
}

type controlModeWire struct {
	Mode string `json:"mode"`
}

type pingWire struct {
	ClientTime int64 `json:"clientTime"`
}

type pongWire struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
}

type inputAckWire struct {
	Seq      uint64 `json:"seq"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// adminScriptWire names a pre-vetted script under the room's
// AdminScriptsDir rather than carrying Lua source from the client directly
// — an authorized admin can only run code the server operator already
// placed on disk, not arbitrary code uploaded over the wire.
type adminScriptWire struct {
	Name string `json:"name"`
}

type adminResultWire struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type worldCreationTimeWire struct {
	CreatedAt int64 `json:"createdAt"`
}

type playerStateWire struct {
	ID              string   `json:"id"`
	Position        *vec2    `json:"position,omitempty"`
	Velocity        *vec2    `json:"velocity,omitempty"`
	Angle           *float64 `json:"angle,omitempty"`
	AngularVelocity *float64 `json:"angularVelocity,omitempty"`
	IsSleeping      *bool    `json:"isSleeping,omitempty"`
	ThrustOn        *bool    `json:"thrustOn,omitempty"`
	Cargo           *string  `json:"cargo,omitempty"`
}

type vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func fullStateWire(s state.PlayerState) playerStateWire {
	pos, vel, angle, av, sleeping, thrust, cargo := s.Position, s.Velocity, s.Angle, s.AngularVelocity, s.IsSleeping, s.ThrustOn, s.Cargo
	return playerStateWire{
		ID:              s.ID,
		Position:        &vec2{X: pos.X, Y: pos.Y},
		Velocity:        &vec2{X: vel.X, Y: vel.Y},
		Angle:           &angle,
		AngularVelocity: &av,
		IsSleeping:      &sleeping,
		ThrustOn:        &thrust,
		Cargo:           &cargo,
	}
}

func deltaWire(d state.PlayerDelta) playerStateWire {
	w := playerStateWire{ID: d.ID}
	if d.Position != nil {
		w.Position = &vec2{X: d.Position.X, Y: d.Position.Y}
	}
	if d.Velocity != nil {
		w.Velocity = &vec2{X: d.Velocity.X, Y: d.Velocity.Y}
	}
	w.Angle = d.Angle
	w.AngularVelocity = d.AngularVelocity
	w.IsSleeping = d.IsSleeping
	w.ThrustOn = d.ThrustOn
	w.Cargo = d.Cargo
	return w
}

type worldStateWire struct {
	Tick    uint64            `json:"tick"`
	Players []playerStateWire `json:"players"`
	Planets []planetWire      `json:"planets"`
}

type planetWire struct {
	Name             string  `json:"name"`
	Position         vec2    `json:"position"`
	Radius           float64 `json:"radius"`
	AtmosphereHeight float64 `json:"atmosphereHeight"`
}

type worldUpdateWire struct {
	Tick    uint64            `json:"tick"`
	Players []playerStateWire `json:"players"`
}

// MatchInit builds the room's Core from the match's creation params:
// "planets" names a world file path (internal/planet.LoadWorldFile),
// "admin" opts into roomscript admin commands, both optional.
func (m *Match) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	config := DefaultConfig()

	var planets []planet.Params
	if pathVal, ok := params["planets"]; ok {
		if path, ok := pathVal.(string); ok && path != "" {
			loaded, err := planet.LoadWorldFile(path)
			if err != nil {
				logger.Warn("planet world file %q failed to load, starting with no planets: %v",
					path, fmt.Errorf("%w: %v", ErrConfigLoad, err))
			}
			planets = loaded
		}
	}

	if adminVal, ok := params["admin"]; ok {
		if admin, ok := adminVal.(bool); ok {
			config.Admin = admin
		}
	}

	roomID := ""
	if idVal, ok := params["roomId"]; ok {
		if id, ok := idVal.(string); ok {
			roomID = id
		}
	}

	core := NewCore(config, planets, metrics.RealClock{})

	matchState := &MatchState{
		core:         core,
		roomID:       roomID,
		presences:    make(map[string]runtime.Presence),
		scriptEngine: roomscript.NewEngine(),
	}

	logger.Info("room initialized: %d planets, admin=%t, tickRate=%d", len(planets), config.Admin, config.TickRate)

	return matchState, config.TickRate, "rocket_room"
}

// MatchJoinAttempt always allows — the room has no player cap or
// invite-only gating in scope.
func (m *Match) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("match state type assertion failed")
		return nil, false, "internal error"
	}
	return ms, true, ""
}

// MatchJoin spawns a Core player for each newly joined presence and sends
// them (and everyone else) a full world_state snapshot.
func (m *Match) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("match state type assertion failed")
		return nil
	}

	for _, presence := range presences {
		ms.presences[presence.GetUserId()] = presence
		if err := ms.core.AddPlayer(presence.GetUserId()); err != nil {
			logger.Warn("player %s join: %v", presence.GetUsername(), err)
		}
		m.sendWorldCreationTime(ms, dispatcher, presence)
	}

	m.broadcastFullState(ms, dispatcher, logger, tick)
	return ms
}

// sendWorldCreationTime echoes the room's creation reference to one newly
// joined presence, synchronously and once per join, so the client can align
// its own clock against the room's for log correlation (spec.md §4.8/§6).
func (m *Match) sendWorldCreationTime(ms *MatchState, dispatcher runtime.MatchDispatcher, presence runtime.Presence) {
	payload, err := json.Marshal(worldCreationTimeWire{CreatedAt: ms.core.CreatedAt().UnixMilli()})
	if err != nil {
		return
	}
	dispatcher.BroadcastMessage(OpCodeWorldCreationTime, payload, []runtime.Presence{presence}, nil, true)
}

// MatchLeave tears down each departing presence's Core player.
func (m *Match) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("match state type assertion failed")
		return nil
	}

	for _, presence := range presences {
		if err := ms.core.RemovePlayer(presence.GetUserId()); err != nil {
			logger.Warn("player %s leave: %v", presence.GetUsername(), err)
		}
		delete(ms.presences, presence.GetUserId())
	}
	return ms
}

// MatchTerminate persists a final metrics snapshot.
func (m *Match) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("match state type assertion failed")
		return nil
	}

	if ms.roomID != "" {
		snapshot := ms.core.Counters().Snapshot(ms.core.Clock().Now())
		if err := metrics.PersistSnapshot(ctx, nk, ms.roomID, snapshot); err != nil {
			logger.Error("final metrics persist failed: %v", err)
		}
	}
	return ms
}

// MatchSignal is unused — this room has no out-of-band signal protocol.
func (m *Match) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// MatchLoop processes this tick's inbound messages, advances the Core
// simulation, and broadcasts the result.
func (m *Match) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("match state type assertion failed")
		return nil
	}

	now := ms.core.Clock().Now()
	frameDt := ms.core.config.FixedDeltaTime()
	if !ms.lastTickTime.IsZero() {
		frameDt = now.Sub(ms.lastTickTime).Seconds()
	}
	ms.lastTickTime = now

	for _, message := range messages {
		m.handleMessage(ms, dispatcher, logger, message)
	}

	deltas, _, acks, err := ms.core.Advance(frameDt)
	if err != nil {
		logger.Error("room %s failing fast on internal invariant violation: %v", ms.roomID, err)
		return nil
	}

	for _, ack := range acks {
		m.sendInputAck(ms, dispatcher, ack.PlayerID, ack.Seq, true, "")
	}

	if len(deltas) > 0 {
		m.broadcastDeltas(ms, dispatcher, logger, deltas)
	}

	if ms.roomID != "" && ms.core.Tick()%MetricsPersistInterval == 0 {
		snapshot := ms.core.Counters().Snapshot(now)
		if err := metrics.PersistSnapshot(ctx, nk, ms.roomID, snapshot); err != nil {
			logger.Error("periodic metrics persist failed: %v", err)
		}
	}

	return ms
}

func (m *Match) handleMessage(ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, message runtime.MatchData) {
	playerID := message.GetUserId()

	switch message.GetOpCode() {
	case OpCodePlayerInput:
		var wire playerInputWire
		if err := json.Unmarshal(message.GetData(), &wire); err != nil {
			logger.Warn("malformed player_input from %s: %v", playerID, err)
			return
		}
		msg := input.Message{Type: input.Type(wire.Type), Seq: wire.Seq, Angle: wire.Angle}
		if err := ms.core.EnqueueInput(playerID, msg); err != nil {
			m.sendInputAck(ms, dispatcher, playerID, wire.Seq, false, err.Error())
		}

	case OpCodeSetControlMode:
		var wire controlModeWire
		if err := json.Unmarshal(message.GetData(), &wire); err != nil {
			m.sendAdminResult(ms, dispatcher, playerID, err)
			return
		}
		err := ms.core.SetControlMode(wire.Mode)
		m.sendAdminResult(ms, dispatcher, playerID, err)

	case OpCodePing:
		var wire pingWire
		if err := json.Unmarshal(message.GetData(), &wire); err != nil {
			return
		}
		sentAt := time.UnixMilli(wire.ClientTime)
		now := ms.core.Clock().Now()
		ms.core.Counters().RecordPing(now.Sub(sentAt))
		m.sendPong(ms, dispatcher, playerID, wire.ClientTime, now)

	case OpCodeAdminScript:
		if !ms.core.config.Admin {
			m.sendAdminResult(ms, dispatcher, playerID, fmt.Errorf("admin commands disabled for this room"))
			return
		}
		var wire adminScriptWire
		if err := json.Unmarshal(message.GetData(), &wire); err != nil {
			m.sendAdminResult(ms, dispatcher, playerID, err)
			return
		}
		source, err := loadAdminScript(ms.core.config.AdminScriptsDir, wire.Name)
		if err != nil {
			m.sendAdminResult(ms, dispatcher, playerID, err)
			return
		}
		host := scriptHost{core: ms.core, logger: logger}
		err = ms.scriptEngine.Execute(source, host)
		m.sendAdminResult(ms, dispatcher, playerID, err)

	default:
		logger.Warn("unknown opcode %d from %s", message.GetOpCode(), playerID)
	}
}

// loadAdminScript resolves name to a .lua file under dir and reads its
// source. name may not contain a path separator or "..", so a client can
// only ever select one of the operator's pre-placed scripts by its bare
// name, never escape dir.
func loadAdminScript(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid admin script name %q", name)
	}
	path := filepath.Join(dir, name+".lua")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load admin script %q: %w", name, err)
	}
	return string(data), nil
}

// scriptHost adapts Core to roomscript.Host, routing Log through the
// Nakama logger Core itself never holds a reference to.
type scriptHost struct {
	core   *Core
	logger runtime.Logger
}

func (h scriptHost) PlayerCount() int                 { return h.core.PlayerCount() }
func (h scriptHost) SetControlMode(mode string) error { return h.core.SetControlMode(mode) }
func (h scriptHost) SetCargo(playerID, cargo string) error {
	return h.core.SetCargo(playerID, cargo)
}
func (h scriptHost) Log(message string) { h.logger.Info("roomscript: %s", message) }

func (m *Match) sendInputAck(ms *MatchState, dispatcher runtime.MatchDispatcher, playerID string, seq uint64, approved bool, reason string) {
	presence, ok := ms.presences[playerID]
	if !ok {
		return
	}
	payload, err := json.Marshal(inputAckWire{Seq: seq, Approved: approved, Reason: reason})
	if err != nil {
		return
	}
	dispatcher.BroadcastMessage(OpCodeInputACK, payload, []runtime.Presence{presence}, nil, true)
}

func (m *Match) sendPong(ms *MatchState, dispatcher runtime.MatchDispatcher, playerID string, clientTime int64, now time.Time) {
	presence, ok := ms.presences[playerID]
	if !ok {
		return
	}
	payload, err := json.Marshal(pongWire{ClientTime: clientTime, ServerTime: now.UnixMilli()})
	if err != nil {
		return
	}
	dispatcher.BroadcastMessage(OpCodePong, payload, []runtime.Presence{presence}, nil, true)
}

func (m *Match) sendAdminResult(ms *MatchState, dispatcher runtime.MatchDispatcher, playerID string, err error) {
	presence, ok := ms.presences[playerID]
	if !ok {
		return
	}
	result := adminResultWire{OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return
	}
	dispatcher.BroadcastMessage(OpCodeAdminResult, payload, []runtime.Presence{presence}, nil, true)
}

func (m *Match) broadcastFullState(ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, tick int64) {
	players := make([]playerStateWire, 0, len(ms.presences))
	for _, s := range ms.core.Snapshot() {
		players = append(players, fullStateWire(s))
	}

	planets := make([]planetWire, 0, len(ms.core.Planets()))
	for _, p := range ms.core.Planets() {
		planets = append(planets, planetWire{
			Name:             p.Name,
			Position:         vec2{X: p.Position.X, Y: p.Position.Y},
			Radius:           p.Radius,
			AtmosphereHeight: p.AtmosphereHeight,
		})
	}

	payload, err := json.Marshal(worldStateWire{Tick: ms.core.Tick(), Players: players, Planets: planets})
	if err != nil {
		logger.Error("marshal world_state: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpCodeWorldState, payload, nil, nil, true)
}

func (m *Match) broadcastDeltas(ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, deltas []state.PlayerDelta) {
	players := make([]playerStateWire, 0, len(deltas))
	for _, d := range deltas {
		players = append(players, deltaWire(d))
	}

	payload, err := json.Marshal(worldUpdateWire{Tick: ms.core.Tick(), Players: players})
	if err != nil {
		logger.Error("marshal world_update: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpCodeWorldUpdate, payload, nil, nil, true)
}
