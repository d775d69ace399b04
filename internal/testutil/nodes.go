package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Scratch is the per-run state of a TestNode.
type Scratch struct {
	Touched bool
	Value   float64
}

// TestNode is a configurable node for graph and orchestrator tests. Runs
// counts Run calls across every row.
type TestNode struct {
	node.Base
	node.State[Scratch]

	Emit    map[string]any
	Vars    []string
	Statics []string
	Files   []string
	Err     error
	// OnRun, when set, replaces the default Run body.
	OnRun func(ctx context.Context, n *TestNode) error

	Runs        int
	Inits       int
	CleanUps    int
	TouchedSeen []bool
}

// NewNode returns a TestNode of kind "test".
func NewNode(label string) *TestNode {
	return &TestNode{Base: node.NewBase("test", label)}
}

// Needs declares a parent without reading any of its values: a file
// reference over every produced file resolves to an empty list before the
// parent ran.
func (n *TestNode) Needs(parents ...node.Node) *TestNode {
	for _, p := range parents {
		n.Depend("needs_"+p.NodeBase().Label(), depref.MustFile(p, ".*", -1))
	}
	return n
}

// Reads declares a value input named after the attribute.
func (n *TestNode) Reads(parent node.Node, attribute string) *TestNode {
	n.Depend(attribute, depref.Value(parent, attribute))
	return n
}

func (n *TestNode) Initialize(_ context.Context, row statetable.Row) error {
	n.Inits++
	if v, err := row.Float("scratch"); err == nil {
		n.Cur.Value = v
	}
	return nil
}

// Run records whether Scratch leaked from an earlier run, marks it, writes
// the configured files and sets Emit as outputs.
func (n *TestNode) Run(ctx context.Context) error {
	n.Runs++
	n.TouchedSeen = append(n.TouchedSeen, n.Cur.Touched)
	n.Cur.Touched = true
	if n.OnRun != nil {
		return n.OnRun(ctx, n)
	}
	if n.Err != nil {
		return n.Err
	}
	err := n.Track(func() error {
		for _, f := range n.Files {
			if err := os.WriteFile(filepath.Join(n.WorkDir(), f), []byte(f), 0o644); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for k, v := range n.Emit {
		n.SetOutput(k, v)
	}
	return nil
}

func (n *TestNode) Output() map[string]any {
	if len(n.Outputs()) == 0 {
		return nil
	}
	out := make(map[string]any, len(n.Outputs()))
	for k, v := range n.Outputs() {
		out[k] = v
	}
	return out
}

func (n *TestNode) StateVariables(statetable.Row) []string { return n.Vars }
func (n *TestNode) StaticFiles() []string                  { return n.Statics }

func (n *TestNode) CleanUp() error {
	n.CleanUps++
	return n.Base.CleanUp()
}
