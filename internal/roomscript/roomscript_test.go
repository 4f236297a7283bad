package roomscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	players  int
	mode     string
	modeErr  error
	cargo    map[string]string
	cargoErr error
	logLines []string
}

func (f *fakeHost) PlayerCount() int { return f.players }

func (f *fakeHost) SetControlMode(mode string) error {
	if f.modeErr != nil {
		return f.modeErr
	}
	f.mode = mode
	return nil
}

func (f *fakeHost) SetCargo(playerID, cargo string) error {
	if f.cargoErr != nil {
		return f.cargoErr
	}
	if f.cargo == nil {
		f.cargo = make(map[string]string)
	}
	f.cargo[playerID] = cargo
	return nil
}

func (f *fakeHost) Log(message string) { f.logLines = append(f.logLines, message) }

func TestExecuteReadsPlayerCount(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{players: 3}

	err := e.Execute(`
		if room_player_count() ~= 3 then
			error("unexpected player count")
		end
	`, host)

	assert.NoError(t, err)
}

func TestExecuteSetsControlMode(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{}

	err := e.Execute(`room_set_control_mode("paused")`, host)

	require.NoError(t, err)
	assert.Equal(t, "paused", host.mode)
}

func TestExecutePropagatesHostRejection(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{modeErr: assert.AnError}

	err := e.Execute(`room_set_control_mode("bogus")`, host)

	assert.Error(t, err)
}

func TestExecuteLogsMessages(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{}

	err := e.Execute(`room_log("hello from script")`, host)

	require.NoError(t, err)
	require.Len(t, host.logLines, 1)
	assert.Equal(t, "hello from script", host.logLines[0])
}

func TestExecuteSetsCargo(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{}

	err := e.Execute(`room_set_cargo("player-1", "ore")`, host)

	require.NoError(t, err)
	assert.Equal(t, "ore", host.cargo["player-1"])
}

func TestExecutePropagatesCargoRejection(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{cargoErr: assert.AnError}

	err := e.Execute(`room_set_cargo("unknown", "ore")`, host)

	assert.Error(t, err)
}

func TestEnginePoolsStatesAcrossCalls(t *testing.T) {
	e := NewEngine()
	host := &fakeHost{players: 1}

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Execute(`room_player_count()`, host))
	}
}
