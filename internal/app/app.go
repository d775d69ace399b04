package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/sweep"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	console   slog.Handler
	logger    *slog.Logger
	cfg       *Config
	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	runID     string

	orch       atomic.Pointer[sweep.Orchestrator]
	httpServer *http.Server
}

// NewApp loads the sweep files named by cfg and registers the given
// modules, or the core modules when none are given. Configuration
// overrides are applied to the loaded sweep settings.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	console := newHandler(cfg.LogLevel, cfg.LogFormat, outW)
	runID := uuid.NewString()
	logger := slog.New(console).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.SweepPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.apply(model.Sweep)
	logger.Debug("Configuration loaded and translated into unified model.", "nodes", len(model.Nodes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.LoadModules(ctx, modules...)

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.", "kinds", reg.Kinds())

	return &App{
		outW:      outW,
		console:   console,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		model:     model,
		converter: converter,
		runID:     runID,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded sweep model.
func (a *App) Model() *config.Model {
	return a.model
}

// RunID identifies this invocation in logs and status responses.
func (a *App) RunID() string {
	return a.runID
}
