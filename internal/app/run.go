package app

import (
	"context"
	"fmt"

	"github.com/vk/sweepgrid/internal/builder"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/filestore"
	"github.com/vk/sweepgrid/internal/graph"
	"github.com/vk/sweepgrid/internal/inmemorystore"
	"github.com/vk/sweepgrid/internal/nodestore"
	"github.com/vk/sweepgrid/internal/scheduler"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/sweep"
)

// Run builds the nodes, plans the sweep and executes it. The results table
// holds the rows completed before any failure.
func (a *App) Run(ctx context.Context) (*statetable.Table, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startStatusServer(ctx)
	defer a.closeStatusServer(ctx)

	o, err := a.orchestrator(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := o.Plan(ctx); err != nil {
		return nil, err
	}

	logger, closer, err := withLogFile(a.console, o.BaseDir())
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	logger = logger.With("run_id", a.runID, "sweep", a.model.Sweep.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	logger.Info("🚀 Starting sweep.", "rows", o.Table().RowCount(), "base_dir", o.BaseDir())
	res, err := o.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("sweep failed: %w", err)
	}
	logger.Info("🏁 Sweep finished.", "output", o.OutputPath())
	return res, nil
}

// Schedule builds the nodes and returns their execution order without
// touching the sweep directory.
func (a *App) Schedule(ctx context.Context) (*scheduler.Schedule, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	res, err := builder.Build(ctx, a.model, a.registry, a.converter)
	if err != nil {
		return nil, err
	}
	set := graph.Discover(ctx, res.Nodes...)
	sched, err := scheduler.BuildOrder(ctx, set.Nodes())
	if err != nil {
		return nil, err
	}
	if err := scheduler.Verify(sched); err != nil {
		return nil, err
	}
	sched.AssignNames()
	return sched, nil
}

func (a *App) orchestrator(ctx context.Context) (*sweep.Orchestrator, error) {
	s := a.model.Sweep
	table, err := loadTable(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load state table: %w", err)
	}
	store, err := newStore(s.Store)
	if err != nil {
		return nil, err
	}
	res, err := builder.Build(ctx, a.model, a.registry, a.converter)
	if err != nil {
		return nil, err
	}

	o := sweep.New(sweep.Config{
		Name:           s.Name,
		Directory:      s.Directory,
		CleanSlate:     s.CleanSlate,
		FrequentOutput: s.FrequentOutput,
		SkipMatching:   s.SkipMatching,
		OutputFile:     s.Output,
		Version:        a.cfg.Version,
	}, table, store)
	o.Add(res.Nodes...)
	a.orch.Store(o)
	return o, nil
}

// loadTable assembles the state table: the defaults file, overlaid by the
// inline parameters, broadcast over the design rows.
func loadTable(s *config.Sweep) (*statetable.Table, error) {
	table := statetable.New()
	if s.Defaults != "" {
		if err := table.LoadDefaults(s.Defaults); err != nil {
			return nil, err
		}
	}
	if len(s.Parameters) > 0 {
		params, err := statetable.FromMap(s.Parameters)
		if err != nil {
			return nil, err
		}
		if table.RowCount() == 0 {
			table = params
		} else if table, err = statetable.Merge(table, params); err != nil {
			return nil, err
		}
	}
	if s.Design != "" {
		if err := table.LoadDesign(s.Design); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func newStore(kind string) (nodestore.Store, error) {
	switch kind {
	case "", config.StoreFile:
		return filestore.New(), nil
	case config.StoreMemory:
		return inmemorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
