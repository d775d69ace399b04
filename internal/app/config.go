package app

import (
	"errors"
	"fmt"

	"github.com/vk/sweepgrid/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SweepPaths []string // hcl files or directories

	LogFormat  string
	LogLevel   string
	StatusPort int
	Version    string

	// Overrides of the sweep block. Empty strings and nil pointers leave
	// the declared value alone.
	Directory    string
	Output       string
	Store        string
	CleanSlate   *bool
	SkipMatching *bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.SweepPaths) == 0 {
		return nil, errors.New("at least one sweep path is required")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.Store {
	case "", config.StoreFile, config.StoreMemory:
	default:
		return nil, fmt.Errorf("invalid store %q: must be %q or %q", cfg.Store, config.StoreFile, config.StoreMemory)
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status port %d", cfg.StatusPort)
	}
	return &cfg, nil
}

// apply overlays the overrides onto the sweep settings.
func (c *Config) apply(s *config.Sweep) {
	if c.Directory != "" {
		s.Directory = c.Directory
	}
	if c.Output != "" {
		s.Output = c.Output
	}
	if c.Store != "" {
		s.Store = c.Store
	}
	if c.CleanSlate != nil {
		s.CleanSlate = *c.CleanSlate
	}
	if c.SkipMatching != nil {
		s.SkipMatching = *c.SkipMatching
	}
}
