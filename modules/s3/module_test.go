package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/testutil"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.plt", ObjectKey("", "/w/run_0/a.plt"))
	assert.Equal(t, "v1/run_0/a.plt", ObjectKey("v1/run_0", "/w/run_0/a.plt"))
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode("x", Settings{Bucket: "b"})
	assert.ErrorContains(t, err, "required")
}

func TestUpload(t *testing.T) {
	var (
		mu   sync.Mutex
		puts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			mu.Lock()
			puts = append(puts, r.URL.Path)
			mu.Unlock()
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "iv.plt")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o644))
	sim := testutil.NewNode("sim")
	sim.AddOutputFiles(file, filepath.Join(dir, "sim.log"))

	n, err := NewNode("archive", Settings{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "sweeps",
		Prefix:    "{{ .sweep }}/run_{{ .run }}",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
		Insecure:  true,
	})
	require.NoError(t, err)
	n.Depend(DefaultInput, depref.MustFile(sim, `.*\.plt`, -1))
	require.NoError(t, n.CollectDependencies())

	row := statetable.NewRow(0, []string{"sweep", "run"}, map[string]any{"sweep": "mos", "run": 2})
	require.NoError(t, node.Execute(context.Background(), n, row))

	assert.Equal(t, []string{"s3://sweeps/mos/run_2/iv.plt"}, n.Outputs()[URIsOutput])
	assert.Equal(t, 1, n.Outputs()[CountOutput])
	assert.Equal(t, []string{"/sweeps/mos/run_2/iv.plt"}, puts)
	assert.ElementsMatch(t, []string{"sweep", "run"}, n.StateVariables(row))
}
