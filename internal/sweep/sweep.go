package sweep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/graph"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/nodestore"
	"github.com/vk/sweepgrid/internal/scheduler"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Column names added to every row of the state table.
const (
	VersionColumn = "sweepgrid"
	BaseDirColumn = "base_dir"
	SimDirColumn  = "sim_dir"
)

// Files written to the base directory.
const (
	ScheduleFile = "schedule.txt"
	StateFile    = "state.csv"
	ResultsFile  = "output.csv"
)

// ErrEmptyTable is returned when the state table has no rows.
var ErrEmptyTable = errors.New("state table has no rows")

// Config holds the sweep-level settings.
type Config struct {
	Name      string
	Directory string
	// CleanSlate removes the base directory before the sweep.
	CleanSlate bool
	// FrequentOutput exports the results table after every row.
	FrequentOutput bool
	// SkipMatching reuses the outputs of an earlier equivalent run instead
	// of executing a node again.
	SkipMatching bool
	// OutputFile is the results CSV. Relative paths are resolved against the
	// base directory.
	OutputFile string
	Version    string
}

// Progress is a snapshot of how far a sweep got.
type Progress struct {
	Rows      int    `json:"rows"`
	Completed int    `json:"completed"`
	Executed  int    `json:"executed"`
	Reused    int    `json:"reused"`
	Row       int    `json:"row"`
	Node      string `json:"node,omitempty"`
}

// Orchestrator drives one sweep: every node of the schedule once per row of
// the state table, reusing earlier equivalent runs.
type Orchestrator struct {
	cfg     Config
	table   *statetable.Table
	store   nodestore.Store
	roots   []node.Node
	baseDir string

	schedule *scheduler.Schedule
	results  *statetable.Table

	mu       sync.Mutex
	progress Progress
}

// New returns an orchestrator over table. The table is extended with the
// orchestration columns when the sweep is planned.
func New(cfg Config, table *statetable.Table, store nodestore.Store) *Orchestrator {
	if cfg.OutputFile == "" {
		cfg.OutputFile = ResultsFile
	}
	return &Orchestrator{
		cfg:     cfg,
		table:   table,
		store:   store,
		results: statetable.New(),
		baseDir: baseDir(cfg),
	}
}

// baseDir resolves <Directory>/<Name> to an absolute path.
func baseDir(cfg Config) string {
	dir := filepath.Join(cfg.Directory, cfg.Name)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// Add registers root nodes. Their parents are discovered when planning.
func (o *Orchestrator) Add(nodes ...node.Node) {
	o.roots = append(o.roots, nodes...)
}

// BaseDir is the directory holding every artifact of the sweep.
func (o *Orchestrator) BaseDir() string { return o.baseDir }

// Table returns the state table.
func (o *Orchestrator) Table() *statetable.Table { return o.table }

// Results returns the results table built so far.
func (o *Orchestrator) Results() *statetable.Table { return o.results }

// Schedule returns the planned schedule, or nil before Plan.
func (o *Orchestrator) Schedule() *scheduler.Schedule { return o.schedule }

// OutputPath is the resolved location of the results CSV.
func (o *Orchestrator) OutputPath() string {
	if filepath.IsAbs(o.cfg.OutputFile) {
		return o.cfg.OutputFile
	}
	return filepath.Join(o.baseDir, o.cfg.OutputFile)
}

// Progress returns a copy of the current progress.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Plan prepares the directories and the state table, then builds, verifies
// and names the schedule. It runs once; later calls return the first
// schedule.
func (o *Orchestrator) Plan(ctx context.Context) (*scheduler.Schedule, error) {
	if o.schedule != nil {
		return o.schedule, nil
	}
	logger := ctxlog.FromContext(ctx)

	if err := o.prepareDirectories(ctx); err != nil {
		return nil, err
	}

	set := graph.Discover(ctx, o.roots...)
	sched, err := scheduler.BuildOrder(ctx, set.Nodes())
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}
	if err := scheduler.Verify(sched); err != nil {
		return nil, err
	}
	sched.AssignNames()
	if err := sched.WriteReport(filepath.Join(o.baseDir, ScheduleFile)); err != nil {
		return nil, fmt.Errorf("failed to write schedule report: %w", err)
	}
	for _, n := range sched.Nodes() {
		node.Save(n)
	}

	o.schedule = sched
	o.mu.Lock()
	o.progress.Rows = o.table.RowCount()
	o.mu.Unlock()
	logger.Info("Schedule ready.", "nodes", sched.Len(), "rows", o.table.RowCount(), "base_dir", o.baseDir)
	return sched, nil
}

func (o *Orchestrator) prepareDirectories(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if o.table.RowCount() == 0 {
		return ErrEmptyTable
	}

	if o.cfg.CleanSlate {
		logger.Info("Removing previous sweep directory.", "base_dir", o.baseDir)
		if err := os.RemoveAll(o.baseDir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", o.baseDir, err)
		}
	}
	if err := os.MkdirAll(o.baseDir, 0o755); err != nil {
		return err
	}

	if o.cfg.Version != "" {
		if err := o.table.SetForAllRows(VersionColumn, o.cfg.Version); err != nil {
			return err
		}
	}
	if err := o.table.SetForAllRows(BaseDirColumn, o.baseDir); err != nil {
		return err
	}
	for i := 0; i < o.table.RowCount(); i++ {
		dir := filepath.Join(o.baseDir, fmt.Sprintf("run_%d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := o.table.SetAt(SimDirColumn, dir+string(filepath.Separator), i); err != nil {
			return err
		}
	}
	return o.table.ExportCSV(filepath.Join(o.baseDir, StateFile), "ID")
}

// Run executes the sweep. Rows are processed in order; a node failure
// aborts the remaining rows. The results of completed rows are exported in
// every case.
func (o *Orchestrator) Run(ctx context.Context) (*statetable.Table, error) {
	sched, err := o.Plan(ctx)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	for i := 0; i < o.table.RowCount(); i++ {
		row, err := o.table.Row(i)
		if err != nil {
			return o.results, err
		}
		rowCtx, rowLogger := ctxlog.With(ctx, "row", i)
		rowLogger.Info("Row started.", "sim_dir", row.String(SimDirColumn))

		outputs, names, err := o.runRow(rowCtx, sched, row)
		if err != nil {
			if exportErr := o.export(); exportErr != nil {
				logger.Error("Failed to export results.", "error", exportErr)
			}
			return o.results, fmt.Errorf("row %d: %w", i, err)
		}

		if err := o.appendResult(row, outputs, names); err != nil {
			return o.results, fmt.Errorf("row %d: %w", i, err)
		}
		o.mu.Lock()
		o.progress.Completed++
		o.progress.Node = ""
		o.mu.Unlock()

		if o.cfg.FrequentOutput {
			if err := o.export(); err != nil {
				return o.results, err
			}
		}
		rowLogger.Info("Row finished.")
	}

	if err := o.export(); err != nil {
		return o.results, err
	}
	p := o.Progress()
	logger.Info("Sweep finished.", "rows", p.Completed, "executed", p.Executed, "reused", p.Reused, "output", o.OutputPath())
	return o.results, nil
}

// runRow processes every node of one row and returns the merged node outputs
// with their keys in first-seen order. CleanUp runs for every node
// afterwards, also when a node failed.
func (o *Orchestrator) runRow(ctx context.Context, sched *scheduler.Schedule, row statetable.Row) (outputs map[string]any, names []string, err error) {
	nodes := sched.Nodes()
	defer func() {
		var errs []error
		for _, n := range nodes {
			if cerr := n.CleanUp(); cerr != nil {
				errs = append(errs, fmt.Errorf("node %s: clean up: %w", n.NodeBase().Name(), cerr))
			}
		}
		err = errors.Join(append([]error{err}, errs...)...)
	}()

	outputs = make(map[string]any)
	seen := make(map[string]bool)
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := o.runNode(ctx, n, row); err != nil {
			return nil, nil, err
		}

		out := n.Output()
		if len(out) == 0 {
			continue
		}
		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
		for k, v := range out {
			outputs[k] = v
		}
	}
	return outputs, names, nil
}

func (o *Orchestrator) runNode(ctx context.Context, n node.Node, row statetable.Row) error {
	b := n.NodeBase()
	ctx, logger := ctxlog.With(ctx, "node", b.Name())
	o.mu.Lock()
	o.progress.Row = row.Index()
	o.progress.Node = b.Name()
	o.mu.Unlock()

	node.Restore(n)
	if err := b.CollectDependencies(); err != nil {
		return err
	}
	dir := o.nodeDir(row.Index(), n)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b.SetWorkDir(dir)
	if err := node.SaveRecord(o.store, n, row, true); err != nil {
		return err
	}

	match := o.findMatch(ctx, n, row.Index())
	if match >= 0 && o.cfg.SkipMatching {
		logger.Info("Reusing equivalent run.", "from_row", match)
		if err := node.LoadRecord(o.store, n, o.nodeDir(match, n)); err != nil {
			return fmt.Errorf("node %s: load outputs of row %d: %w", b.Name(), match, err)
		}
		o.mu.Lock()
		o.progress.Reused++
		o.mu.Unlock()
	} else {
		logger.Info("Executing node.", "kind", b.Kind(), "label", b.Label())
		if err := node.Execute(ctx, n, row); err != nil {
			return err
		}
		o.mu.Lock()
		o.progress.Executed++
		o.mu.Unlock()
	}

	return node.SaveRecord(o.store, n, row, false)
}

// findMatch returns the nearest earlier row whose run of n is equivalent to
// the current one, or -1.
func (o *Orchestrator) findMatch(ctx context.Context, n node.Node, row int) int {
	logger := ctxlog.FromContext(ctx)
	for j := row - 1; j >= 0; j-- {
		memo := make(map[node.Node]bool)
		if o.equivalentAt(ctx, n, row, j, memo) && o.outputsReadable(n, j) {
			return j
		}
	}
	logger.Debug("No equivalent earlier run.")
	return -1
}

// equivalentAt compares the record of n at row with its record at candidate,
// then does the same for every parent. Missing, malformed or incomplete
// candidate records never match.
func (o *Orchestrator) equivalentAt(ctx context.Context, n node.Node, row, candidate int, memo map[node.Node]bool) bool {
	if v, ok := memo[n]; ok {
		return v
	}
	memo[n] = false

	cur, err := o.store.Load(o.nodeDir(row, n))
	if err != nil {
		return false
	}
	prev, err := o.store.Load(o.nodeDir(candidate, n))
	if err != nil || !prev.Complete() {
		return false
	}
	if ok, reason := nodestore.Equivalent(cur.Dependencies, prev.Dependencies); !ok {
		ctxlog.FromContext(ctx).Debug("Earlier run differs.", "node", n.NodeBase().Name(), "candidate_row", candidate, "reason", reason)
		return false
	}
	for _, p := range n.NodeBase().Parents() {
		if !o.equivalentAt(ctx, p, row, candidate, memo) {
			return false
		}
	}
	memo[n] = true
	return true
}

// outputsReadable reports whether the outputs artifact of n at row loads.
func (o *Orchestrator) outputsReadable(n node.Node, row int) bool {
	rec, err := o.store.Load(o.nodeDir(row, n))
	if err != nil {
		return false
	}
	_, err = o.store.LoadOutputs(rec)
	return err == nil
}

func (o *Orchestrator) nodeDir(row int, n node.Node) string {
	simDir, err := o.table.Value(SimDirColumn, row)
	if err != nil {
		return filepath.Join(o.baseDir, fmt.Sprintf("run_%d", row), n.NodeBase().Name())
	}
	return filepath.Join(statetable.FormatValue(simDir), n.NodeBase().Name())
}

func (o *Orchestrator) appendResult(row statetable.Row, outputs map[string]any, outputNames []string) error {
	merged := row.Map()
	for k, v := range outputs {
		merged[k] = v
	}
	names := row.Columns()
	for _, k := range outputNames {
		if !row.Has(k) {
			names = append(names, k)
		}
	}
	_, err := o.results.AppendRow(statetable.NewRow(row.Index(), names, merged))
	return err
}

func (o *Orchestrator) export() error {
	if o.results.RowCount() == 0 {
		return nil
	}
	if err := o.results.ExportCSV(o.OutputPath(), "id"); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	return nil
}
