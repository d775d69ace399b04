// Package device provides the "device" node kind: a device simulation whose
// current-voltage plot is loaded right away. It is a composite of a hidden
// "command" node and a hidden "plt" node reading its first .plt file; the
// device node itself only reports the plt summary.
//
//	node "device" "idvg" {
//	  template = "sdevice.cmd.tmpl"
//	  command  = "sdevice {{ .deck }}"
//	  summary  = ["drain TotalCurrent"]
//
//	  inputs {
//	    mesh_file = file(node.mesh, ".*_msh\\.tdr", 0)
//	  }
//	}
package device

import (
	"context"
	"regexp"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/modules/command"
	"github.com/vk/sweepgrid/modules/plt"
)

// Kind is the node kind handled by this module.
const Kind = "device"

// DefaultFilter selects the plot file among the simulation's files.
const DefaultFilter = `.*\.plt`

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of a device node block.
type Settings struct {
	Command           string   `hcl:"command"`
	Template          string   `hcl:"template,optional"`
	ParameterTemplate string   `hcl:"parameter_template,optional"`
	Suffix            string   `hcl:"suffix,optional"`
	Timeout           string   `hcl:"timeout,optional"`
	EnvFile           string   `hcl:"env_file,optional"`
	StaticFiles       []string `hcl:"static_files,optional"`
	Filter            string   `hcl:"filter,optional"`
	Index             int      `hcl:"index,optional"`
	CSV               string   `hcl:"csv,optional"`
	Summary           []string `hcl:"summary,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	return NewNode(decl.Name, decl.Dir, s)
}

// Node is the visible part of the composite.
type Node struct {
	node.Base
	sim  *command.Node
	plot *plt.Node
}

// NewNode builds the composite. Relative paths are resolved against dir.
func NewNode(label, dir string, s Settings) (*Node, error) {
	sim, err := command.NewNode(label+"_sim", dir, command.Settings{
		Command:           s.Command,
		Template:          s.Template,
		ParameterTemplate: s.ParameterTemplate,
		Suffix:            s.Suffix,
		Timeout:           s.Timeout,
		EnvFile:           s.EnvFile,
		StaticFiles:       s.StaticFiles,
	})
	if err != nil {
		return nil, err
	}

	filter := s.Filter
	if filter == "" {
		filter = DefaultFilter
	}
	if _, err := regexp.Compile(filter); err != nil {
		return nil, err
	}
	plot := plt.NewNode(label+"_plt", plt.Settings{CSV: s.CSV, Summary: s.Summary})
	ref, err := depref.File(sim, filter, s.Index)
	if err != nil {
		return nil, err
	}
	plot.Depend(plt.DefaultInput, ref)

	n := &Node{Base: node.NewBase(Kind, label), sim: sim, plot: plot}
	n.Depend(plt.SummaryOutput, depref.Value(plot, plt.SummaryOutput))
	return n, nil
}

// InputNode makes declared inputs available to the simulation templates.
func (n *Node) InputNode() node.Node { return n.sim }

// Run publishes the plot summary as the device's outputs.
func (n *Node) Run(context.Context) error {
	summary, _ := n.Input(plt.SummaryOutput).Value().(map[string]any)
	for k, v := range summary {
		n.SetOutput(k, v)
	}
	return nil
}

func (n *Node) Output() map[string]any {
	out := make(map[string]any, len(n.Outputs()))
	for k, v := range n.Outputs() {
		out[k] = v
	}
	return out
}
