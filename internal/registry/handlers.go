package registry

import (
	"fmt"
	"log/slog"
)

// RegisterKind registers the factory for a node kind. Registering a kind
// twice is a programmer error and panics.
func (r *Registry) RegisterKind(kind string, f Factory) {
	if _, exists := r.factories[kind]; exists {
		panic(fmt.Sprintf("node kind '%s' already registered", kind))
	}
	if f == nil {
		panic(fmt.Sprintf("nil factory for node kind '%s'", kind))
	}
	slog.Debug("Registering node kind.", "kind", kind)
	r.factories[kind] = f
}

// Lookup returns the factory of kind.
func (r *Registry) Lookup(kind string) (Factory, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return f, nil
}
