package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/sweepgrid/internal/app"
	"github.com/vk/sweepgrid/internal/hcl_adapter"
)

func runCmd(v *viper.Viper, opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run SWEEP_PATH...",
		Short: "Execute a sweep.",
		Long:  "Execute every node of the sweep once per row of its state table. SWEEP_PATH is a .hcl file or a directory of them.",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings(v, args, opts.Version)
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), cmd.ErrOrStderr(), cfg, hcl_adapter.NewLoader(), opts.Modules...)
			if err != nil {
				return usageError(err)
			}
			res, err := a.Run(cmd.Context())
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sweep %s finished: %d rows.\n", a.Model().Sweep.Name, res.RowCount())
			return nil
		},
	}

	f := cmd.Flags()
	f.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	f.String("directory", "", "Override the parent directory of the sweep.")
	f.String("output", "", "Override the results CSV file.")
	f.String("store", "", "Override the node state store: 'file' or 'memory'.")
	f.Bool("clean-slate", false, "Remove the sweep directory before running.")
	f.Bool("skip-matching", true, "Reuse the outputs of equivalent earlier runs.")
	return cmd
}

func scheduleCmd(v *viper.Viper, opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule SWEEP_PATH...",
		Short: "Print the execution order of a sweep without running it.",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings(v, args, opts.Version)
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), cmd.ErrOrStderr(), cfg, hcl_adapter.NewLoader(), opts.Modules...)
			if err != nil {
				return usageError(err)
			}
			sched, err := a.Schedule(cmd.Context())
			if err != nil {
				return failure(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), sched.Report())
			return nil
		},
	}
}

func versionCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.Version)
		},
	}
}
