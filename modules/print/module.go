// Package print provides the "print" node kind, which logs its resolved
// inputs and selected row columns. It is meant for debugging sweep files.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Kind is the node kind handled by this module.
const Kind = "print"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of a print node block.
type Settings struct {
	Columns []string `hcl:"columns,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	return NewNode(decl.Name, s, os.Stdout), nil
}

// Node prints its inputs.
type Node struct {
	node.Base
	node.State[map[string]any]

	settings Settings
	out      io.Writer
}

// NewNode returns a print node writing to out.
func NewNode(label string, s Settings, out io.Writer) *Node {
	return &Node{Base: node.NewBase(Kind, label), settings: s, out: out}
}

func (n *Node) Initialize(_ context.Context, row statetable.Row) error {
	values := n.InputValues()
	for _, c := range n.settings.Columns {
		if v, ok := row.Get(c); ok {
			values[c] = v
		}
	}
	n.Cur = values
	return nil
}

func (n *Node) Run(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Printing input", "node", n.Name(), "values", len(n.Cur))

	if len(n.Cur) == 0 {
		fmt.Fprintln(n.out, "      (null)")
		return nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(n.Cur))
	for k := range n.Cur {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(n.out, "      %s = %q\n", k, statetable.FormatValue(n.Cur[k]))
	}
	return nil
}

// StateVariables makes the printed columns part of the cache key.
func (n *Node) StateVariables(row statetable.Row) []string {
	var vars []string
	for _, c := range n.settings.Columns {
		if row.Has(c) {
			vars = append(vars, c)
		}
	}
	return vars
}
