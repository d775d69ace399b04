package registry

import (
	"context"

	"github.com/vk/sweepgrid/internal/ctxlog"
)

// LoadModules lets every module register its kinds.
func (r *Registry) LoadModules(ctx context.Context, modules ...Module) {
	logger := ctxlog.FromContext(ctx)
	for _, mod := range modules {
		mod.Register(r)
	}
	logger.Debug("All Go modules registered.", "modules", len(modules), "kinds", r.Kinds())
}
