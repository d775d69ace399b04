package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/filestore"
	"github.com/vk/sweepgrid/internal/inmemorystore"
	"github.com/vk/sweepgrid/internal/scheduler"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/testutil"
)

func table(t *testing.T, csv string) *statetable.Table {
	t.Helper()
	tbl, err := statetable.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func config(t *testing.T) Config {
	return Config{Name: "sweep", Directory: t.TempDir(), SkipMatching: true, Version: "test"}
}

func TestRun_ResultAggregation(t *testing.T) {
	a := testutil.NewNode("a")
	a.Emit = map[string]any{"x": 1}
	b := testutil.NewNode("b").Needs(a)
	b.Emit = map[string]any{"y": 2}

	o := New(config(t), table(t, "p,label\n0.5,first\n"), filestore.New())
	o.Add(b)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, results.RowCount())

	row, err := results.Row(0)
	require.NoError(t, err)
	values := row.Map()
	assert.Equal(t, 1.0, values["x"])
	assert.Equal(t, 2.0, values["y"])
	assert.Equal(t, 0.5, values["p"])
	assert.Equal(t, "first", values["label"])
	assert.Equal(t, "test", values[VersionColumn])
	assert.Equal(t, o.BaseDir(), values[BaseDirColumn])
	assert.Equal(t, filepath.Join(o.BaseDir(), "run_0")+string(filepath.Separator), values[SimDirColumn])
	assert.Equal(t, []string{"p", "label", VersionColumn, BaseDirColumn, SimDirColumn, "x", "y"}, row.Columns())

	data, err := os.ReadFile(o.OutputPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,p,label,sweepgrid,base_dir,sim_dir,x,y\n0,0.5,first,test,"))
}

func TestRun_Layout(t *testing.T) {
	a := testutil.NewNode("a")
	a.Files = []string{"result.dat"}

	o := New(config(t), table(t, "p\n1\n"), filestore.New())
	o.Add(a)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	base := o.BaseDir()
	assert.FileExists(t, filepath.Join(base, ScheduleFile))
	assert.FileExists(t, filepath.Join(base, StateFile))
	assert.FileExists(t, filepath.Join(base, "run_0", "00_test", filestore.StateFile))
	assert.FileExists(t, filepath.Join(base, "run_0", "00_test", filestore.OutputsFile))
	assert.FileExists(t, filepath.Join(base, "run_0", "00_test", "result.dat"))

	state, err := os.ReadFile(filepath.Join(base, StateFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(state), "ID,p,"))
}

func TestRun_CacheIdempotence(t *testing.T) {
	a := testutil.NewNode("a")
	a.Vars = []string{"c"}
	a.Emit = map[string]any{"x": 1}
	b := testutil.NewNode("b").Reads(a, "x")
	b.Vars = []string{"c"}
	b.Emit = map[string]any{"y": 2}

	o := New(config(t), table(t, "c\n1\n1\n1\n"), filestore.New())
	o.Add(b)
	results, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, a.Runs)
	assert.Equal(t, 1, b.Runs)
	p := o.Progress()
	assert.Equal(t, 2, p.Executed)
	assert.Equal(t, 4, p.Reused)
	assert.Equal(t, 3, p.Completed)

	for i := 0; i < 3; i++ {
		row, err := results.Row(i)
		require.NoError(t, err)
		assert.Equal(t, 1.0, row.Map()["x"])
		assert.Equal(t, 2.0, row.Map()["y"])
	}
}

func TestRun_CacheDiscrimination(t *testing.T) {
	a := testutil.NewNode("a")
	a.Vars = []string{"c"}
	b := testutil.NewNode("b").Needs(a)

	o := New(config(t), table(t, "c,d\n1,5\n1,6\n2,5\n"), filestore.New())
	o.Add(b)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, a.Runs, "row 2 changes a state variable of a")
	assert.Equal(t, 2, b.Runs, "b reruns because its parent changed")
}

func TestRun_SkipMatchingDisabled(t *testing.T) {
	a := testutil.NewNode("a")
	cfg := config(t)
	cfg.SkipMatching = false

	o := New(cfg, table(t, "c\n1\n1\n"), inmemorystore.New())
	o.Add(a)
	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, a.Runs)
}

func TestRun_SnapshotIsolation(t *testing.T) {
	a := testutil.NewNode("a")
	cfg := config(t)
	cfg.SkipMatching = false

	o := New(cfg, table(t, "c\n1\n2\n3\n"), inmemorystore.New())
	o.Add(a)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, false}, a.TouchedSeen)
	assert.True(t, a.Cur.Touched, "the last run's change is visible until the next restore")
}

func TestRun_MalformedRecordIsNoMatch(t *testing.T) {
	a := testutil.NewNode("a")
	a.Vars = []string{"c"}
	b := testutil.NewNode("b").Needs(a)
	b.OnRun = func(_ context.Context, n *testutil.TestNode) error {
		if n.Runs == 1 {
			path := filepath.Join(filepath.Dir(n.WorkDir()), a.Name(), filestore.StateFile)
			return os.WriteFile(path, []byte("{broken"), 0o644)
		}
		return nil
	}

	o := New(config(t), table(t, "c\n1\n1\n"), filestore.New())
	o.Add(b)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, a.Runs)
	assert.Equal(t, 2, b.Runs)
}

func TestRun_NodeFailureAbortsSweep(t *testing.T) {
	boom := errors.New("boom")
	a := testutil.NewNode("a")
	a.Vars = []string{"c"}
	a.Emit = map[string]any{"x": 1}
	b := testutil.NewNode("b").Needs(a)
	b.Vars = []string{"c"}
	b.OnRun = func(_ context.Context, n *testutil.TestNode) error {
		if n.Runs == 2 {
			return boom
		}
		n.SetOutput("y", 2)
		return nil
	}

	o := New(config(t), table(t, "c\n1\n2\n3\n"), filestore.New())
	o.Add(b)
	results, err := o.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "row 1")

	assert.Equal(t, 1, results.RowCount())
	assert.Equal(t, 2, a.CleanUps, "clean up also runs for the failed row")
	assert.Equal(t, 2, b.CleanUps)

	data, err := os.ReadFile(o.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"), "header and the completed row")
}

func TestRun_FrequentOutput(t *testing.T) {
	a := testutil.NewNode("a")
	cfg := config(t)
	cfg.FrequentOutput = true
	cfg.SkipMatching = false
	cfg.OutputFile = filepath.Join(t.TempDir(), "results.csv")

	o := New(cfg, table(t, "c\n1\n2\n"), inmemorystore.New())
	a.OnRun = func(_ context.Context, n *testutil.TestNode) error {
		if n.Runs == 2 {
			data, err := os.ReadFile(cfg.OutputFile)
			if err != nil {
				return err
			}
			assert.Equal(t, 2, strings.Count(string(data), "\n"), "first row exported before the second ran")
		}
		return nil
	}
	o.Add(a)
	_, err := o.Run(context.Background())
	require.NoError(t, err)
}

func TestPlan_CycleAbortsBeforeExecution(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)
	a.Needs(b)

	o := New(config(t), table(t, "c\n1\n"), inmemorystore.New())
	o.Add(a, b)
	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, scheduler.ErrCycle)
	assert.Zero(t, a.Runs)
	assert.Zero(t, b.Runs)
}

func TestPlan_CleanSlateAndEmptyTable(t *testing.T) {
	cfg := config(t)
	cfg.CleanSlate = true
	stale := filepath.Join(cfg.Directory, cfg.Name, "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, nil, 0o644))

	o := New(cfg, table(t, "c\n1\n"), inmemorystore.New())
	o.Add(testutil.NewNode("a"))
	_, err := o.Plan(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)

	empty := New(config(t), statetable.New(), inmemorystore.New())
	_, err = empty.Plan(context.Background())
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestRun_CancelledContext(t *testing.T) {
	a := testutil.NewNode("a")
	o := New(config(t), table(t, "c\n1\n"), inmemorystore.New())
	o.Add(a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.Runs)
}

func TestRun_LaterOutputReplacesMapValue(t *testing.T) {
	a := testutil.NewNode("a")
	a.Emit = map[string]any{"m": map[string]any{"k1": 1}}
	b := testutil.NewNode("b").Needs(a)
	b.Emit = map[string]any{"m": map[string]any{"k2": 2}}

	o := New(config(t), table(t, "p\n1\n"), inmemorystore.New())
	o.Add(b)
	results, err := o.Run(context.Background())
	require.NoError(t, err)

	row, err := results.Row(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k2": 2}, row.Map()["m"])
	assert.Equal(t, map[string]any{"k1": 1}, a.Emit["m"])
}

func TestRun_UnreadableOutputsIsNoMatch(t *testing.T) {
	a := testutil.NewNode("a")
	a.Vars = []string{"c"}
	a.Emit = map[string]any{"x": 1}
	b := testutil.NewNode("b").Needs(a)
	b.OnRun = func(_ context.Context, n *testutil.TestNode) error {
		if n.Runs == 1 {
			return os.Remove(filepath.Join(filepath.Dir(n.WorkDir()), a.Name(), filestore.OutputsFile))
		}
		return nil
	}

	o := New(config(t), table(t, "c\n1\n1\n"), filestore.New())
	o.Add(b)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, a.Runs)
	assert.Equal(t, 1, b.Runs)
}

func TestNew_BaseDirIsAbsolute(t *testing.T) {
	o := New(Config{Name: "s", Directory: "relative"}, statetable.New(), inmemorystore.New())

	want, err := filepath.Abs(filepath.Join("relative", "s"))
	require.NoError(t, err)
	assert.Equal(t, want, o.BaseDir())
}
