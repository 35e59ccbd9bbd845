package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/lintbox/internal/config"
	"github.com/harrison/lintbox/internal/logger"
)

// Version is injected at build time via -ldflags. The host and the worker
// child are the same binary, so the version handshake compares this value
// against itself unless the module directory holds a different build.
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for lintbox
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lintbox",
		Short: "Run project linters inside an isolated worker process",
		Long: `lintbox runs a static-analysis pass against a project file in a freshly
spawned worker process. The worker is loaded only from the directory lintbox
itself was installed in, so linter crashes and dependency versions cannot
leak into the calling process.

Configuration is loaded from $LINTBOX_HOME/config.yaml (default
.lintbox/config.yaml) if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $LINTBOX_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewLintCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewPruneCommand())
	cmd.AddCommand(NewInternalCommand())

	return cmd
}

// loadConfig loads the configuration named by --config (or
// $LINTBOX_HOME/config.yaml), applies --log-level and validates the result.
// It also returns the absolute config path. The worker child always gets
// that path, even when no file exists there, so it never falls back to a
// config relative to its own working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return nil, "", err
		}
	}
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path %s: %w", configPath, err)
	}

	cfg, err := config.LoadConfig(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", absPath, err)
	}

	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		cfg.MergeWithFlags(nil, nil, &level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, absPath, nil
}

// loggers is the logging setup shared by the lint and worker commands.
type loggers struct {
	log     logger.Logger
	console *logger.ConsoleLogger
	file    *logger.FileLogger // nil when the log directory is unusable
}

func (l *loggers) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

// newLoggers builds the console logger plus, when the log directory is
// usable, a file logger.
func newLoggers(cmd *cobra.Command, cfg *config.Config) *loggers {
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	fileLogger, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		return &loggers{log: console, console: console}
	}
	return &loggers{
		log:     logger.NewMultiLogger(console, fileLogger),
		console: console,
		file:    fileLogger,
	}
}
