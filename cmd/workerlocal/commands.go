package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/config"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/sink"
	"github.com/spf13/cobra"
)

// cliFlags holds flags shared by every subcommand.
type cliFlags struct {
	configPath string
	logLevel   string
	sinkDriver string
	sinkPath   string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "workerlocal",
		Short:         "Parallel reductions over per-worker stores",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "settings file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.sinkDriver, "sink", "", "override sink.driver (memory, sqlite, badger)")
	rootCmd.PersistentFlags().StringVar(&flags.sinkPath, "sink-path", "", "override sink.path")

	rootCmd.AddCommand(newRunCmd(flags), newRunsCmd(flags), newVersionCmd())
	return rootCmd
}

// settings loads the config file and applies flag overrides.
func (f *cliFlags) settings() (config.Settings, error) {
	s, err := config.Load(f.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if f.logLevel != "" {
		s.LogLevel = f.logLevel
	}
	if f.sinkDriver != "" {
		s.Sink.Driver = f.sinkDriver
	}
	if f.sinkPath != "" {
		s.Sink.Path = f.sinkPath
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func newLogger(w io.Writer, s config.Settings) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.SlogLevel()}))
}

func newRunCmd(flags *cliFlags) *cobra.Command {
	var (
		items    int
		workers  int
		exporter string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sum items on a worker pool and persist the per-worker partials",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.settings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				s.Workers = workers
				if err := s.Validate(); err != nil {
					return err
				}
			}
			if items < 0 {
				return fmt.Errorf("--items must be >= 0, got %d", items)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := newLogger(cmd.ErrOrStderr(), s)

			shutdown, err := setupTelemetry(ctx, exporter, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if exporter != exporterNone {
				s.Metrics, s.Tracing = true, true
			}

			store, err := sink.Open(s.Sink.Driver, s.Sink.Path, logger)
			if err != nil {
				return errors.Join(err, shutdown(ctx))
			}

			report, runErr := runWorkload(ctx, s, items, store, logger)
			closeErr := store.Close()
			shutdownErr := shutdown(ctx)
			if runErr != nil {
				return runErr
			}
			if err := errors.Join(closeErr, shutdownErr); err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&items, "items", 1000, "number of items to sum")
	cmd.Flags().IntVar(&workers, "workers", 0, "override workers (0 means GOMAXPROCS)")
	cmd.Flags().StringVar(&exporter, "exporter", exporterNone, "telemetry exporter (none, stdout)")
	return cmd
}

func newRunsCmd(flags *cliFlags) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs, or show one with --run",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.settings()
			if err != nil {
				return err
			}
			store, err := sink.Open(s.Sink.Driver, s.Sink.Path, newLogger(cmd.ErrOrStderr(), s))
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID == "" {
				runs, err := store.Runs()
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintln(out, r)
				}
				return nil
			}

			partials, err := sink.Restore[partial](store, runID)
			if err != nil {
				return err
			}
			return printReport(out, newReport(runID, partials))
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run ID to restore")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "workerlocal", version)
		},
	}
}

func printReport(w io.Writer, r runReport) error {
	fmt.Fprintf(w, "run %s\n", r.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tCOUNT\tSUM\tMIN\tMAX")
	for _, p := range r.Partials {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n", p.Worker, p.Count, p.Sum, p.Min, p.Max)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t\t\n", r.Count, r.Sum)
	return tw.Flush()
}
