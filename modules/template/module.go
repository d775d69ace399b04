// Package template provides the "template" node kind, which renders one
// template file per row into the node's working directory.
package template

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/tmpl"
)

// Kind is the node kind handled by this module.
const Kind = "template"

// FileOutput holds the path of the rendered file.
const FileOutput = "file"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of a template node block.
type Settings struct {
	Template string `hcl:"template"`
	Suffix   string `hcl:"suffix,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	if s.Template == "" {
		return nil, fmt.Errorf("template must not be empty")
	}
	if !filepath.IsAbs(s.Template) {
		s.Template = filepath.Join(decl.Dir, s.Template)
	}
	return NewNode(decl.Name, s), nil
}

// Node renders a template file.
type Node struct {
	node.Base
	node.State[map[string]any]

	settings Settings
}

// NewNode returns a template node. s.Template must be absolute or relative
// to the working directory of the process.
func NewNode(label string, s Settings) *Node {
	return &Node{Base: node.NewBase(Kind, label), settings: s}
}

func (n *Node) Initialize(_ context.Context, row statetable.Row) error {
	n.Cur = n.TemplateData(row)
	return nil
}

func (n *Node) Run(ctx context.Context) error {
	var out string
	err := n.Track(func() error {
		var err error
		out, err = tmpl.RenderFile(n.settings.Template, n.Cur, n.WorkDir(), n.settings.Suffix)
		return err
	})
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Template rendered.", "node", n.Name(), "file", out)
	n.SetOutput(FileOutput, out)
	return nil
}

func (n *Node) StateVariables(row statetable.Row) []string {
	fields, err := tmpl.Fields(n.settings.Template)
	if err != nil {
		return nil
	}
	var vars []string
	for _, f := range fields {
		if row.Has(f) {
			vars = append(vars, f)
		}
	}
	return vars
}

func (n *Node) StaticFiles() []string { return []string{n.settings.Template} }
