package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/sweep"
)

// Status is the body of the /status endpoint.
type Status struct {
	RunID    string          `json:"run_id"`
	Sweep    string          `json:"sweep"`
	BaseDir  string          `json:"base_dir,omitempty"`
	Progress *sweep.Progress `json:"progress,omitempty"`
}

func (a *App) statusRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", a.healthHandler)
	r.Get("/status", a.statusHandler)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	st := Status{RunID: a.runID, Sweep: a.model.Sweep.Name}
	if o := a.orch.Load(); o != nil {
		p := o.Progress()
		st.BaseDir = o.BaseDir()
		st.Progress = &p
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		a.logger.Error("Failed to encode status.", "error", err)
	}
}

// startStatusServer runs the status server in the background. A port of
// zero disables it.
func (a *App) startStatusServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.cfg.StatusPort <= 0 {
		logger.Debug("Status server not started: disabled.")
		return
	}

	addr := fmt.Sprintf(":%d", a.cfg.StatusPort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.statusRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) closeStatusServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server.")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed.", "error", err)
	}
}
