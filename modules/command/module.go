// Package command provides the "command" node kind: it renders input-deck
// templates with the values of a row and runs an external program in the
// node's working directory.
//
//	node "command" "sim" {
//	  template           = "sdevice.cmd.tmpl"
//	  parameter_template = "models.par.tmpl"
//	  command            = "sdevice {{ .deck }}"
//	  timeout            = "2h"
//	  env_file           = ".env"
//	  static_files       = ["models/**/*.par"]
//
//	  inputs {
//	    mesh_file = file(node.mesh, ".*_msh\\.tdr", 0)
//	  }
//	}
//
// The command is a template as well. Rendered deck paths are available as
// `deck` and `parameter_file`; inputs under their own names.
package command

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"mvdan.cc/sh/v3/shell"
)

// Kind is the node kind handled by this module.
const Kind = "command"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of a command node block.
type Settings struct {
	Command           string   `hcl:"command"`
	Template          string   `hcl:"template,optional"`
	ParameterTemplate string   `hcl:"parameter_template,optional"`
	Suffix            string   `hcl:"suffix,optional"`
	Timeout           string   `hcl:"timeout,optional"`
	EnvFile           string   `hcl:"env_file,optional"`
	StaticFiles       []string `hcl:"static_files,optional"`
	// Log receives stdout and stderr of the program, inside the working
	// directory.
	Log string `hcl:"log,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	return NewNode(decl.Name, decl.Dir, s)
}

// NewNode validates s and returns the node. Relative paths in s are resolved
// against dir.
func NewNode(label, dir string, s Settings) (*Node, error) {
	if s.Command == "" {
		return nil, fmt.Errorf("command must not be empty")
	}
	if _, err := shell.Fields(s.Command, func(string) string { return "" }); err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", s.Command, err)
	}

	n := &Node{Base: node.NewBase(Kind, label), settings: s}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		n.timeout = d
	}
	n.settings.Template = resolve(dir, s.Template)
	n.settings.ParameterTemplate = resolve(dir, s.ParameterTemplate)
	n.settings.EnvFile = resolve(dir, s.EnvFile)
	if n.settings.Log == "" {
		n.settings.Log = label + ".log"
	}

	n.settings.StaticFiles = nil
	for _, pattern := range s.StaticFiles {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid static_files pattern %q", pattern)
		}
		n.settings.StaticFiles = append(n.settings.StaticFiles, resolve(dir, pattern))
	}
	return n, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
