package node

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/fsutil"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Node is one unit of scheduled work. Concrete kinds embed Base, which
// provides every method except Run.
type Node interface {
	depref.Source

	// NodeBase exposes the shared bookkeeping of the node.
	NodeBase() *Base

	// Initialize prepares per-run fields from the current row. It must not
	// have externally observable side effects.
	Initialize(ctx context.Context, row statetable.Row) error
	// Run performs the work. Produced files are recorded through Base.Track.
	Run(ctx context.Context) error
	// Output returns the scalars merged into the results row. May be nil.
	Output() map[string]any
	// StateVariables lists the columns of row the node's behaviour depends on.
	StateVariables(row statetable.Row) []string
	// StaticFiles lists fixed input files, such as templates.
	StaticFiles() []string
	// CleanUp removes produced files when the node is configured to. It is
	// idempotent.
	CleanUp() error
}

// Composite is implemented by nodes that construct hidden nodes of their
// own. Declared inputs are bound to InputNode instead of the composite.
type Composite interface {
	InputNode() Node
}

// Stateful is implemented by nodes that keep per-run fields outside Base.
// SaveState is called once after construction, RestoreState before every
// row.
type Stateful interface {
	SaveState()
	RestoreState()
}

// State holds plugin-owned per-run fields. Embedding it makes a node
// Stateful; Cur is reset to its saved value on every restore. The copy is a
// value copy, so reference types inside T must be replaced, not mutated.
type State[T any] struct {
	Cur   T
	saved T
}

func (s *State[T]) SaveState()    { s.saved = s.Cur }
func (s *State[T]) RestoreState() { s.Cur = s.saved }

// Base carries the state every node shares. It must be created with NewBase.
type Base struct {
	kind  string
	label string
	name  string

	workDir      string
	outputs      map[string]any
	outputFiles  []string
	cleanOutputs bool
	inputs       []*Input

	phase Phase
	snap  *snapshot
}

type snapshot struct {
	workDir      string
	outputs      map[string]any
	outputFiles  []string
	cleanOutputs bool
}

// NewBase returns the base of a node of the given kind. label is the name the
// node was declared with; it is also the display name until the schedule
// assigns one.
func NewBase(kind, label string) Base {
	return Base{
		kind:    kind,
		label:   label,
		name:    label,
		outputs: make(map[string]any),
	}
}

func (b *Base) NodeBase() *Base { return b }

// Kind is the plugin kind of the node.
func (b *Base) Kind() string { return b.kind }

// Label is the declared name.
func (b *Base) Label() string { return b.label }

// Name is the display name, "<position>_<kind>" once scheduled.
func (b *Base) Name() string { return b.name }

// SetName is used by the scheduler.
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) WorkDir() string           { return b.workDir }
func (b *Base) SetWorkDir(dir string)     { b.workDir = dir }
func (b *Base) CleanOutputs() bool        { return b.cleanOutputs }
func (b *Base) SetCleanOutputs(v bool)    { b.cleanOutputs = v }
func (b *Base) Phase() Phase              { return b.phase }
func (b *Base) SetPhase(p Phase)          { b.phase = p }
func (b *Base) Outputs() map[string]any   { return b.outputs }
func (b *Base) OutputFiles() []string     { return b.outputFiles }
func (b *Base) SetOutput(k string, v any) { b.outputs[k] = v }

// AddOutputFiles appends produced files.
func (b *Base) AddOutputFiles(files ...string) {
	b.outputFiles = append(b.outputFiles, files...)
}

// ApplyOutputs replaces outputs and produced files with persisted ones.
// It stands in for Run when an earlier equivalent run is reused.
func (b *Base) ApplyOutputs(outputs map[string]any, files []string) {
	b.outputs = make(map[string]any, len(outputs))
	for k, v := range outputs {
		b.outputs[k] = v
	}
	b.outputFiles = append([]string(nil), files...)
	b.phase = Ran
}

// Depend registers an input. It is meant to be called from constructors so
// that the graph can be discovered from declared references.
func (b *Base) Depend(name string, ref depref.Ref) *Input {
	in := &Input{name: name, ref: ref}
	b.inputs = append(b.inputs, in)
	return in
}

// Inputs returns the declared inputs in declaration order.
func (b *Base) Inputs() []*Input { return b.inputs }

// Input returns the input registered under name, or nil.
func (b *Base) Input(name string) *Input {
	for _, in := range b.inputs {
		if in.name == name {
			return in
		}
	}
	return nil
}

// InputValues returns the resolved value of every input by name.
func (b *Base) InputValues() map[string]any {
	out := make(map[string]any, len(b.inputs))
	for _, in := range b.inputs {
		out[in.name] = in.value
	}
	return out
}

// WorkDirKey is the template data key holding the working directory.
const WorkDirKey = "work_dir"

// TemplateData merges the row values, the resolved inputs and the working
// directory into one map. Inputs win over columns of the same name.
func (b *Base) TemplateData(row statetable.Row) map[string]any {
	data := row.Map()
	for k, v := range b.InputValues() {
		data[k] = v
	}
	data[WorkDirKey] = b.workDir
	return data
}

// Parents returns the distinct source nodes of the inputs, in declaration
// order.
func (b *Base) Parents() []Node {
	seen := make(map[Node]bool, len(b.inputs))
	var parents []Node
	for _, in := range b.inputs {
		p, ok := in.ref.Source().(Node)
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		parents = append(parents, p)
	}
	return parents
}

// Snapshot stores the current fields as the state every run starts from.
func (b *Base) Snapshot() {
	b.snap = &snapshot{
		workDir:      b.workDir,
		outputs:      cloneMap(b.outputs),
		outputFiles:  append([]string(nil), b.outputFiles...),
		cleanOutputs: b.cleanOutputs,
	}
	b.phase = StateSnapshotted
}

// Restore resets the fields to the snapshot and forgets resolved inputs.
// Without a snapshot it only clears resolved inputs.
func (b *Base) Restore() {
	if b.snap != nil {
		b.workDir = b.snap.workDir
		b.outputs = cloneMap(b.snap.outputs)
		b.outputFiles = append([]string(nil), b.snap.outputFiles...)
		b.cleanOutputs = b.snap.cleanOutputs
	}
	for _, in := range b.inputs {
		in.value, in.resolved = nil, false
	}
	b.phase = StateSnapshotted
}

// CollectDependencies resolves every input.
func (b *Base) CollectDependencies() error {
	for _, in := range b.inputs {
		if err := in.resolve(); err != nil {
			return fmt.Errorf("node %s: input %q: %w", b.name, in.name, err)
		}
	}
	b.phase = DependenciesCollected
	return nil
}

// Track runs fn and records the files it created or modified under the
// working directory as produced files.
func (b *Base) Track(fn func() error) error {
	if b.workDir == "" {
		return fn()
	}
	files, err := fsutil.Track(b.workDir, fn)
	b.outputFiles = append(b.outputFiles, files...)
	return err
}

// Initialize is a no-op.
func (b *Base) Initialize(context.Context, statetable.Row) error { return nil }

// Output contributes nothing by default.
func (b *Base) Output() map[string]any { return nil }

// StateVariables is empty by default.
func (b *Base) StateVariables(statetable.Row) []string { return nil }

// StaticFiles is empty by default.
func (b *Base) StaticFiles() []string { return nil }

// CleanUp deletes produced files that still exist when clean outputs is
// enabled.
func (b *Base) CleanUp() error {
	defer func() { b.phase = CleanedUp }()
	if !b.cleanOutputs {
		return nil
	}
	var errs []error
	for _, f := range b.outputFiles {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save snapshots a node, including plugin state.
func Save(n Node) {
	n.NodeBase().Snapshot()
	if s, ok := n.(Stateful); ok {
		s.SaveState()
	}
}

// Restore returns a node to its post-construction state.
func Restore(n Node) {
	n.NodeBase().Restore()
	if s, ok := n.(Stateful); ok {
		s.RestoreState()
	}
}

// Execute runs Initialize then Run, advancing the phase.
func Execute(ctx context.Context, n Node, row statetable.Row) error {
	b := n.NodeBase()
	if err := n.Initialize(ctx, row); err != nil {
		return fmt.Errorf("node %s: initialize: %w", b.name, err)
	}
	b.phase = Initialized
	if err := n.Run(ctx); err != nil {
		return fmt.Errorf("node %s: run: %w", b.name, err)
	}
	b.phase = Ran
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
