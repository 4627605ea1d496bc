package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"content_import/internal/scheduler"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "importer",
		Short:         "Scheduled content import from RSS and other feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	withApp := func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd, a, args)
		}
	}

	rootCmd.AddCommand(
		newRunCmd(withApp),
		newTickCmd(withApp),
		newDriversCmd(withApp),
		newImportersCmd(withApp),
		newSectionsCmd(withApp),
	)
	return rootCmd
}

type appRunner func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newRunCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run importers on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			runner, err := a.newRunner()
			if err != nil {
				return err
			}

			sched, err := scheduler.NewScheduler(runner, a.cfg.Import.Schedule, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				select {
				case sig := <-sigCh:
					a.logger.Info("received shutdown signal", "signal", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			a.logger.Info("starting content importer",
				"schedule", a.cfg.Import.Schedule,
				"max_items", a.cfg.Import.MaxItems,
				"max_errors", a.cfg.Import.MaxErrors,
				"delay_errors", a.cfg.Import.ErrorDelay(),
			)

			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("scheduler: %w", err)
			}
			return nil
		}),
	}
}

func newTickCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run due importers once and print statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			runner, err := a.newRunner()
			if err != nil {
				return err
			}

			stats, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"importers: %d, succeeded: %d, failed: %d, disabled: %d, imported: %d, persist failures: %d, took %s\n",
				stats.Importers, stats.Succeeded, stats.Failed, stats.Disabled,
				stats.Imported, stats.PersistFailures, stats.Duration,
			)
			return nil
		}),
	}
}
