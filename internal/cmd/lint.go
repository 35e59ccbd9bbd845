package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/lintbox/internal/boundary"
	"github.com/harrison/lintbox/internal/config"
	"github.com/harrison/lintbox/internal/filelock"
	"github.com/harrison/lintbox/internal/history"
	"github.com/harrison/lintbox/internal/isolation"
	"github.com/harrison/lintbox/internal/models"
	"github.com/harrison/lintbox/internal/telemetry"
)

// outputLockTimeout bounds the wait for another process writing the same report.
const outputLockTimeout = 10 * time.Second

// NewLintCommand creates the lint command
func NewLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <project-file>",
		Short: "Lint a project file in an isolated worker",
		Long: `Lint a project file by spawning a fresh worker process from the lintbox
installation directory, sending it the project path and printing the result
it returns as JSON.

Every invocation gets its own isolation context and worker process; nothing
is reused between runs.

Exit status:
  0  clean (or warnings only)
  1  the result contains errors (or warnings, with --fail-on-warnings)
  2  the isolated invocation failed

Examples:
  lintbox lint src/App/App.fsproj
  lintbox lint --output report.json src/App/App.fsproj
  lintbox lint --timeout 2m --fail-on-warnings App.fsproj
  lintbox lint --telemetry stdout App.fsproj 2>trace.json`,
		Args: cobra.ExactArgs(1),
		RunE: runLint,
	}

	cmd.Flags().String("timeout", "", "Cancel the invocation after this long (e.g. 30s, 2m)")
	cmd.Flags().String("output", "", "Write the JSON result to this file instead of stdout")
	cmd.Flags().String("worker", "", "Fully-qualified worker name (overrides config)")
	cmd.Flags().Bool("fail-on-warnings", false, "Exit non-zero when the result has warnings")
	cmd.Flags().Bool("no-history", false, "Do not record this invocation in the history database")
	cmd.Flags().String("telemetry", "", "Export spans and metrics: none or stdout (written to stderr)")

	return cmd
}

// runLint implements the lint command logic
func runLint(cmd *cobra.Command, args []string) error {
	projectFile := args[0]

	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if timeoutStr, _ := cmd.Flags().GetString("timeout"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		if timeout < 0 {
			return fmt.Errorf("timeout must be >= 0, got %v", timeout)
		}
		cfg.MergeWithFlags(nil, &timeout, nil)
	}
	if cmd.Flags().Changed("worker") {
		name, _ := cmd.Flags().GetString("worker")
		cfg.MergeWithFlags(&name, nil, nil)
	}

	if cmd.Flags().Changed("telemetry") {
		cfg.Telemetry, _ = cmd.Flags().GetString("telemetry")
	}

	logs := newLoggers(cmd, cfg)
	defer logs.Close()

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    "lintbox",
		ServiceVersion: Version,
		Exporter:       cfg.Telemetry,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logs.log.LogWarn(fmt.Sprintf("telemetry shutdown: %v", err))
		}
	}()

	factory := isolation.NewFactory(cfg.ScratchDir, logs.log)
	factory.Executable = cfg.Worker.Executable

	inv := boundary.NewInvoker(factory, cfg.Worker.Name, Version)
	inv.ConfigPath = configPath
	inv.Logger = logs.log

	var mu sync.Mutex
	contextID := ""
	inv.Observe = func(t boundary.Transition) {
		mu.Lock()
		defer mu.Unlock()
		if t.ContextID != "" {
			contextID = t.ContextID
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, runErr := inv.RunLint(ctx, projectFile)
	elapsed := time.Since(start)

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		mu.Lock()
		id := contextID
		mu.Unlock()
		recordHistory(cfg, logs, projectFile, id, result, runErr, elapsed)
	}

	if runErr != nil {
		if logs.file != nil {
			logs.file.LogError(runErr.Error())
		}
		return &ExitError{Code: ExitBoundary, Err: runErr}
	}

	if result.Duration == 0 {
		result.Duration = elapsed
	}
	if logs.file != nil {
		logs.file.LogResult(result)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := filelock.LockAndWrite(output, data, outputLockTimeout); err != nil {
			return fmt.Errorf("failed to write result to %s: %w", output, err)
		}
	} else if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if isTerminal(os.Stderr) {
		logs.console.LogResult(result)
	}

	failOnWarnings, _ := cmd.Flags().GetBool("fail-on-warnings")
	if result.HasErrors() || (failOnWarnings && result.HasWarnings()) {
		return &ExitError{Code: ExitLintFindings}
	}
	return nil
}

// recordHistory stores the invocation outcome. Failures only warn: history
// must never change the outcome of a lint run.
func recordHistory(cfg *config.Config, logs *loggers, projectFile, contextID string, result *models.Result, runErr error, elapsed time.Duration) {
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		logs.log.LogWarn(fmt.Sprintf("history disabled: %v", err))
		return
	}
	defer store.Close()

	if abs, err := filepath.Abs(projectFile); err == nil {
		projectFile = abs
	}

	rec := &history.Invocation{
		ProjectFile: projectFile,
		Worker:      cfg.Worker.Name,
		ContextID:   contextID,
		Outcome:     boundary.KindName(runErr),
		Duration:    elapsed,
	}
	if runErr != nil {
		rec.Message = runErr.Error()
		var be *boundary.Error
		if errors.As(runErr, &be) {
			rec.Message = be.Message
		}
	} else {
		rec.Status = result.Status
		rec.Errors = result.Errors
		rec.Warnings = result.Warnings
	}

	if err := store.Record(context.Background(), rec); err != nil {
		logs.log.LogWarn(fmt.Sprintf("failed to record history: %v", err))
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
