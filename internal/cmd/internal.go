package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/lintbox/internal/config"
	"github.com/harrison/lintbox/internal/logger"
	"github.com/harrison/lintbox/internal/worker"
)

// NewInternalCommand creates the hidden parent for subcommands that lintbox
// runs in its own child processes.
func NewInternalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "internal",
		Short:  "Internal commands (not for direct use)",
		Hidden: true,
	}
	cmd.AddCommand(NewLintWorkerCommand())
	return cmd
}

// NewLintWorkerCommand creates the worker child entry point. It speaks the
// worker protocol on stdin/stdout; anything human-readable goes to stderr.
func NewLintWorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "lint-worker",
		Short:  "Serve one lint request over stdin/stdout (internal use only)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE:   runLintWorker,
	}

	cmd.Flags().String("worker", "", "Fully-qualified worker name to instantiate")
	_ = cmd.MarkFlagRequired("worker")

	return cmd
}

// runLintWorker serves a single request. Configuration problems are reported
// to the host through the protocol rather than as a bare exit status.
func runLintWorker(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("worker")

	cfg, _, cfgErr := loadConfig(cmd)
	level := "warn"
	if cfgErr == nil {
		level = cfg.LogLevel
	}
	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), level)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := worker.Serve(ctx, worker.ServeOptions{
		Registry:  builtinWorkers(cfg, cfgErr),
		Name:      name,
		Version:   Version,
		ContextID: os.Getenv(worker.EnvContextID),
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("lint worker: %w", err)
	}
	return nil
}

// builtinWorkers registers the workers compiled into lintbox.
func builtinWorkers(cfg *config.Config, cfgErr error) *worker.Registry {
	reg := worker.NewRegistry()
	reg.Register(worker.DefaultWorkerName, func() (worker.Worker, error) {
		if cfgErr != nil {
			return nil, cfgErr
		}
		return worker.NewCommandWorker(cfg.Linter.Command, cfg.Linter.Args, cfg.Linter.Format), nil
	})
	return reg
}
