package inmemorystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/nodestore"
)

func TestSaveAndLoad(t *testing.T) {
	s := New()
	deps := nodestore.Dependencies{Nodes: []string{"00_a"}, StateVariables: map[string]any{"vg": 1.0}}

	_, err := s.Load("/run_0/01_b")
	assert.ErrorIs(t, err, nodestore.ErrNoRecord)

	require.NoError(t, s.SaveDependencies("/run_0/01_b/", deps))
	rec, err := s.Load("/run_0/01_b")
	require.NoError(t, err)
	assert.False(t, rec.Complete())
	assert.Equal(t, deps, rec.Dependencies)

	outputs := map[string]any{"y": 2}
	require.NoError(t, s.Save("/run_0/01_b", deps, outputs, []string{"/run_0/01_b/out.plt"}))
	outputs["y"] = 3

	rec, err = s.Load("/run_0/01_b")
	require.NoError(t, err)
	assert.True(t, rec.Complete())
	assert.Equal(t, []string{"/run_0/01_b/out.plt"}, rec.OutputFiles)

	got, err := s.LoadOutputs(rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"y": 2}, got)
}

func TestSaveDependenciesDropsOutputs(t *testing.T) {
	s := New()
	deps := nodestore.Dependencies{}
	require.NoError(t, s.Save("/d", deps, map[string]any{"x": 1}, nil))
	require.NoError(t, s.SaveDependencies("/d", deps))

	rec, err := s.Load("/d")
	require.NoError(t, err)
	assert.False(t, rec.Complete())
}
