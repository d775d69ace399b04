package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/nodestore"
)

func readRaw(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func TestSaveDependencies_OmitsOutputKeys(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "00_command")
	s := New()

	require.NoError(t, s.SaveDependencies(dir, nodestore.Dependencies{StateVariables: map[string]any{"vg": 0.5}}))

	raw := readRaw(t, dir)
	assert.NotContains(t, raw, "node_output")
	assert.NotContains(t, raw, "output_files")
	assert.Equal(t, map[string]any{
		"nodes":           []any{},
		"state_variables": map[string]any{"vg": 0.5},
		"static_files":    []any{},
	}, raw["dependencies"])

	rec, err := s.Load(dir)
	require.NoError(t, err)
	assert.False(t, rec.Complete())
}

func TestSave_RoundTripsOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "01_plt")
	s := New()
	deps := nodestore.Dependencies{
		Nodes:          []string{"00_command"},
		StateVariables: map[string]any{},
		StaticFiles:    []string{"/tmpl/a.cmd"},
	}
	outputs := map[string]any{"id_max": 1.5e-4, "label": "nmos", "count": 3}

	require.NoError(t, s.Save(dir, deps, outputs, nil))

	raw := readRaw(t, dir)
	assert.Equal(t, []any{}, raw["output_files"])
	assert.Equal(t, filepath.Join(dir, OutputsFile), raw["node_output"])

	rec, err := s.Load(dir)
	require.NoError(t, err)
	require.True(t, rec.Complete())
	ok, reason := nodestore.Equivalent(deps, rec.Dependencies)
	assert.True(t, ok, reason)

	got, err := s.LoadOutputs(rec)
	require.NoError(t, err)
	assert.Equal(t, 1.5e-4, got["id_max"])
	assert.Equal(t, "nmos", got["label"])
	assert.EqualValues(t, 3, got["count"])
}

func TestLoad_MissingAndMalformed(t *testing.T) {
	s := New()
	dir := t.TempDir()

	_, err := s.Load(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, nodestore.ErrNoRecord)

	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFile), []byte("{not json"), 0o644))
	_, err = s.Load(dir)
	assert.ErrorContains(t, err, "malformed record")
}
