// Package env_vars provides the "env_vars" node kind. It exposes environment
// variables, optionally read from a dotenv file, as node outputs so that
// other nodes can reference them with node.<name>.<VARIABLE>.
//
// The values do not take part in reuse decisions: only the dotenv file is
// declared as a static dependency.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
)

// Kind is the node kind handled by this module.
const Kind = "env_vars"

// AllOutput holds every variable when no names are selected.
const AllOutput = "all"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of an env_vars node block.
type Settings struct {
	Names []string `hcl:"names,optional"`
	File  string   `hcl:"file,optional"`
	// Required fails the node when a selected variable is unset.
	Required bool `hcl:"required,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	if s.File != "" && !filepath.IsAbs(s.File) {
		s.File = filepath.Join(decl.Dir, s.File)
	}
	return NewNode(decl.Name, s), nil
}

// Node reads environment variables.
type Node struct {
	node.Base
	settings Settings
}

// NewNode returns an env_vars node.
func NewNode(label string, s Settings) *Node {
	return &Node{Base: node.NewBase(Kind, label), settings: s}
}

// Run publishes the variables. Values from the dotenv file win over the
// process environment.
func (n *Node) Run(context.Context) error {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			envMap[k] = v
		}
	}
	if n.settings.File != "" {
		fileVars, err := godotenv.Read(n.settings.File)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", n.settings.File, err)
		}
		if err := mergo.Merge(&envMap, fileVars, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return fmt.Errorf("failed to overlay %s: %w", n.settings.File, err)
		}
	}

	if len(n.settings.Names) == 0 {
		all := make(map[string]any, len(envMap))
		for k, v := range envMap {
			all[k] = v
		}
		n.SetOutput(AllOutput, all)
		return nil
	}
	for _, name := range n.settings.Names {
		v, ok := envMap[name]
		if !ok && n.settings.Required {
			return fmt.Errorf("environment variable %s is not set", name)
		}
		n.SetOutput(name, v)
	}
	return nil
}

func (n *Node) StaticFiles() []string {
	if n.settings.File == "" {
		return nil
	}
	return []string{n.settings.File}
}
