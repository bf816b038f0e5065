package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stores.cue", storesCUE)

	out, _, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter (2 fields, 1 effects, 0 guards)")
	assert.Contains(t, out, "✓ cart (2 fields, 1 effects, 1 guards)")
	assert.Contains(t, out, "✓ All stores valid")
}

func TestCheck_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stores.cue", storesCUE)

	out, _, err := execute(t, "check", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All stores valid")
}

func TestCheck_CycleWarning(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.cue", cycleCUE)

	out, _, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: potential effect cycle: a -> b -> a")

	_, _, err = execute(t, "check", "--strict", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCheck_ValidationErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `store: bad: {
	state: {n: 0}
	effects: [{when: "n", set: "missing", to: "value +"}]
}
`)
	out, _, err := execute(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad")
	assert.Contains(t, out, "E203")
	assert.Contains(t, out, "E205")
	assert.Contains(t, out, "✗ Check failed")
}

func TestCheck_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.cue", cycleCUE)

	out, _, err := execute(t, "--format", "json", "check", path)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Stores, 1)
	assert.Equal(t, []string{"a", "b"}, resp.Data.Stores[0].Keys)
	require.Len(t, resp.Data.Stores[0].Warnings, 1)
	assert.Equal(t, []string{"a", "b", "a"}, resp.Data.Stores[0].Warnings[0].Path)
}

func TestCheck_NotFound(t *testing.T) {
	out, _, err := execute(t, "check", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: path not found")
}

func TestCheck_CompileError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", "store: x: {state: {n: 1 & 2}}\n")

	out, _, err := execute(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]: failed to load definitions")
}
