package registry

import (
	"context"
	"errors"
	"sort"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/node"
)

// ErrUnknownKind is returned for a node kind no module registered.
var ErrUnknownKind = errors.New("unknown node kind")

// Module is the interface that all plugin modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Factory builds the node for one declaration. Inputs are attached by the
// caller afterwards; the factory may inspect decl.Inputs to validate them.
type Factory func(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error)

// Registry holds the factories of a single application instance.
type Registry struct {
	factories map[string]Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
