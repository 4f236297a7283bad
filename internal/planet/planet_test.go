package planet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onebutton-to-space/rocket-room/internal/kernel"
)

func TestGenerateIsDeterministicForSameName(t *testing.T) {
	a := Generate("Kerbin", kernel.Vector{X: 0, Y: 0})
	b := Generate("Kerbin", kernel.Vector{X: 0, Y: 0})
	assert.Equal(t, a, b)
}

func TestGenerateDiffersAcrossNames(t *testing.T) {
	a := Generate("Kerbin", kernel.Vector{})
	b := Generate("Duna", kernel.Vector{})
	assert.NotEqual(t, a.Radius, b.Radius)
}

func TestGenerateStaysWithinRanges(t *testing.T) {
	for _, name := range []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"} {
		p := Generate(name, kernel.Vector{})
		assert.GreaterOrEqual(t, p.Radius, minRadius)
		assert.LessOrEqual(t, p.Radius, maxRadius)
		assert.GreaterOrEqual(t, p.AtmosphereHeight, 0.0)
		assert.LessOrEqual(t, p.AtmosphereHeight, maxAtmosphere)
		assert.Greater(t, p.Mass, 0.0)
	}
}

func TestLoadWorldFileDegradesToEmptyOnMissingFile(t *testing.T) {
	params, err := LoadWorldFile(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
	assert.Empty(t, params)
}

func TestLoadWorldFileDegradesToEmptyOnMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	params, err := LoadWorldFile(path)
	assert.Error(t, err)
	assert.Empty(t, params)
}

func TestLoadWorldFileExpandsSeedsDeterministically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	body := `[{"name":"Kerbin","x":0,"y":0},{"name":"Duna","x":5000,"y":0}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	params, err := LoadWorldFile(path)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "Kerbin", params[0].Name)
	assert.Equal(t, Generate("Duna", kernel.Vector{X: 5000, Y: 0}), params[1])
}
