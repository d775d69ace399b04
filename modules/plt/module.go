// Package plt provides the "plt" node kind. It loads a DF-ISE .plt file
// produced by another node, optionally exports it as CSV, and reports
// min/max/last of selected datasets as row results.
//
//	node "plt" "iv" {
//	  csv     = "iv.csv"
//	  summary = ["drain TotalCurrent"]
//
//	  inputs {
//	    file = file(node.sim, ".*\\.plt", 0)
//	  }
//	}
package plt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
)

// Kind is the node kind handled by this module.
const Kind = "plt"

// Outputs.
const (
	DataOutput    = "data"
	ColumnsOutput = "columns"
	SummaryOutput = "summary"
)

// DefaultInput is the input holding the .plt path.
const DefaultInput = "file"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of a plt node block.
type Settings struct {
	Input   string   `hcl:"input,optional"`
	CSV     string   `hcl:"csv,optional"`
	Summary []string `hcl:"summary,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	if s.Input == "" {
		s.Input = DefaultInput
	}
	found := false
	for _, in := range decl.Inputs {
		if in.Name == s.Input {
			found = true
			if in.Kind == config.ValueInput {
				return nil, fmt.Errorf("input %q must be a file reference", s.Input)
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("missing input %q", s.Input)
	}
	return NewNode(decl.Name, s), nil
}

// Node loads one .plt file per row.
type Node struct {
	node.Base
	settings Settings
}

// NewNode returns a plt node reading the input named s.Input.
func NewNode(label string, s Settings) *Node {
	if s.Input == "" {
		s.Input = DefaultInput
	}
	return &Node{Base: node.NewBase(Kind, label), settings: s}
}

func (n *Node) Run(ctx context.Context) error {
	in := n.Input(n.settings.Input)
	if in == nil {
		return fmt.Errorf("missing input %q", n.settings.Input)
	}
	paths, err := in.Strings()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("input %q matched no file", n.settings.Input)
	}

	data, err := ParseFile(paths[0])
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Loaded plt file.", "node", n.Name(), "file", paths[0], "columns", len(data.Columns), "rows", len(data.Rows))

	summary := make(map[string]any)
	for _, col := range n.settings.Summary {
		values, ok := data.Column(col)
		if !ok {
			return fmt.Errorf("dataset %q not found in %s", col, paths[0])
		}
		if len(values) == 0 {
			continue
		}
		lo, hi := values[0], values[0]
		for _, v := range values {
			lo, hi = min(lo, v), max(hi, v)
		}
		summary[col+"_min"] = lo
		summary[col+"_max"] = hi
		summary[col+"_last"] = values[len(values)-1]
	}

	if n.settings.CSV != "" {
		err := n.Track(func() error {
			f, err := os.Create(filepath.Join(n.WorkDir(), n.settings.CSV))
			if err != nil {
				return err
			}
			if err := data.WriteCSV(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
		if err != nil {
			return fmt.Errorf("failed to export csv: %w", err)
		}
	}

	n.SetOutput(DataOutput, data.Map())
	n.SetOutput(ColumnsOutput, data.Columns)
	n.SetOutput(SummaryOutput, summary)
	return nil
}

// Output reports the summary values. On a reused run they come from the
// persisted outputs.
func (n *Node) Output() map[string]any {
	s, _ := n.Outputs()[SummaryOutput].(map[string]any)
	return s
}
