package cli

import (
	"strings"

	"github.com/spf13/viper"
	"github.com/vk/sweepgrid/internal/app"
)

// settings resolves flags, environment and config file into an app.Config.
// Boolean overrides are only applied when set somewhere.
func settings(v *viper.Viper, paths []string, version string) (*app.Config, error) {
	cfg := app.Config{
		SweepPaths: paths,
		LogFormat:  strings.ToLower(v.GetString("log-format")),
		LogLevel:   strings.ToLower(v.GetString("log-level")),
		StatusPort: v.GetInt("status-port"),
		Version:    version,
		Directory:  v.GetString("directory"),
		Output:     v.GetString("output"),
		Store:      v.GetString("store"),
	}
	if v.IsSet("clean-slate") {
		b := v.GetBool("clean-slate")
		cfg.CleanSlate = &b
	}
	if v.IsSet("skip-matching") {
		b := v.GetBool("skip-matching")
		cfg.SkipMatching = &b
	}

	c, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return c, nil
}
