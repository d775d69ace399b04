// Package sweeptest runs whole sweeps from in-memory files for integration
// tests.
package sweeptest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/app"
	"github.com/vk/sweepgrid/internal/hcl_adapter"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/statetable"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	// Err is the load or run error. Load errors leave App nil.
	Err     error
	App     *app.App
	Results *statetable.Table
}

// BaseDir is the sweep base directory.
func (r *HarnessResult) BaseDir() string {
	s := r.App.Model().Sweep
	return filepath.Join(s.Directory, s.Name)
}

// RunSweepTest writes files into a temporary directory, loads every .hcl
// file in it and runs the sweep.
func RunSweepTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunSweepTestWithContext(context.Background(), t, files, modules...)
}

// RunSweepTestWithContext is RunSweepTest with a caller-provided context.
func RunSweepTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.Config{
		SweepPaths: []string{dir},
		LogLevel:   "debug",
		LogFormat:  "text",
		Version:    "test",
	})
	require.NoError(t, err)

	logBuffer := &app.SafeBuffer{}
	res := &HarnessResult{Dir: dir}
	res.App, res.Err = app.NewApp(ctx, logBuffer, cfg, hcl_adapter.NewLoader(), modules...)
	if res.Err == nil {
		res.Results, res.Err = res.App.Run(ctx)
	}
	res.LogOutput = logBuffer.String()

	if os.Getenv("SWEEPGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
	}
	return res
}

// AssertLogged checks that every fragment appears in the log output.
func AssertLogged(t *testing.T, res *HarnessResult, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.True(t, strings.Contains(res.LogOutput, f), "expected %q in log output", f)
	}
}
