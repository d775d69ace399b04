package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/sweepgrid/internal/registry"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// EnvPrefix prefixes the environment variables read by the CLI.
const EnvPrefix = "SWEEPGRID"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

func failure(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}

// Options configure a command tree. Modules defaults to the core modules.
type Options struct {
	Out     io.Writer
	Err     io.Writer
	Version string
	Modules []registry.Module
}

// Execute runs the command tree over args.
func Execute(ctx context.Context, args []string, opts Options) error {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the sweepgrid command tree. Every tree owns its own
// viper instance.
func NewRootCommand(opts Options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "sweepgrid",
		Short:         "Run multi-step workflows over a parameter sweep.",
		Long:          "SweepGrid runs a graph of nodes once per row of a parameter table and reuses the results of equivalent earlier runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return usageError(err)
			}
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return usageError(fmt.Errorf("failed to read config file: %w", err))
				}
			}
			return nil
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML file with default flag values.")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(runCmd(v, opts))
	root.AddCommand(scheduleCmd(v, opts))
	root.AddCommand(versionCmd(opts))
	return root
}

func requirePaths(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError(errors.New("requires at least one sweep file or directory"))
	}
	return nil
}
