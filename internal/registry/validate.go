package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
)

// Validate checks that every declaration in model has a registered kind and
// that inputs only reference declared nodes. All problems are reported
// together.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	declared := make(map[string]bool, len(model.Nodes))
	for _, n := range model.Nodes {
		declared[n.Name] = true
	}

	for _, n := range model.Nodes {
		if _, ok := r.factories[n.Kind]; !ok {
			errs = append(errs, fmt.Errorf("%s: node %q: %w %q (registered: %v)", n.DeclRange, n.Name, ErrUnknownKind, n.Kind, r.Kinds()))
		}
		for _, in := range n.Inputs {
			if !declared[in.Node] {
				errs = append(errs, fmt.Errorf("%s: node %q: input %q references undeclared node %q", in.Range, n.Name, in.Name, in.Node))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed: %w", errors.Join(errs...))
	}
	logger.Debug("Registry validation passed.", "nodes", len(model.Nodes))
	return nil
}
