package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/lintbox/internal/telemetry"
	"github.com/harrison/lintbox/internal/worker"
)

// WorkerConfig selects the worker the isolated child instantiates
type WorkerConfig struct {
	// Name is the fully-qualified worker name resolved inside the child
	Name string `yaml:"name"`

	// Executable is the worker binary's file name in the module directory.
	// Empty means the running lintbox binary itself.
	Executable string `yaml:"executable"`
}

// LinterConfig describes the external linter run by the command worker
type LinterConfig struct {
	// Command is the linter executable, looked up in the module directory then PATH
	Command string `yaml:"command"`

	// Args are passed to the linter before the project file
	Args []string `yaml:"args"`

	// Format is the linter output format (msbuild or json)
	Format string `yaml:"format"`
}

// HistoryConfig represents invocation history configuration
type HistoryConfig struct {
	// Enabled records every invocation in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents lintbox configuration options
type Config struct {
	Worker WorkerConfig `yaml:"worker"`
	Linter LinterConfig `yaml:"linter"`

	// Timeout bounds one lint invocation from the caller's side (0 = none)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// ScratchDir holds one directory per live isolation context
	ScratchDir string `yaml:"scratch_dir"`

	History HistoryConfig `yaml:"history"`

	// Telemetry selects the span and metric exporter (none or stdout)
	Telemetry string `yaml:"telemetry"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	logDir, err := getLogDir()
	if err != nil {
		logDir = filepath.Join(".lintbox", "logs")
	}
	dbPath, err := GetHistoryDBPath()
	if err != nil {
		dbPath = filepath.Join(".lintbox", "history.db")
	}

	return &Config{
		Worker: WorkerConfig{
			Name: worker.DefaultWorkerName,
		},
		Linter: LinterConfig{
			Command: "dotnet-fsharplint",
			Args:    []string{"lint"},
			Format:  worker.FormatMSBuild,
		},
		Timeout:    0,
		LogLevel:   "info",
		LogDir:     logDir,
		ScratchDir: filepath.Join(os.TempDir(), "lintbox"),
		History: HistoryConfig{
			Enabled: true,
			DBPath:  dbPath,
		},
		Telemetry: telemetry.ExporterNone,
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML; pointers tell "absent" from "zero"
	type yamlConfig struct {
		Worker struct {
			Name       *string `yaml:"name"`
			Executable *string `yaml:"executable"`
		} `yaml:"worker"`
		Linter struct {
			Command *string   `yaml:"command"`
			Args    *[]string `yaml:"args"`
			Format  *string   `yaml:"format"`
		} `yaml:"linter"`
		Timeout    string `yaml:"timeout"`
		LogLevel   string `yaml:"log_level"`
		LogDir     string `yaml:"log_dir"`
		ScratchDir string `yaml:"scratch_dir"`
		History    struct {
			Enabled *bool   `yaml:"enabled"`
			DBPath  *string `yaml:"db_path"`
		} `yaml:"history"`
		Telemetry string `yaml:"telemetry"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Worker.Name != nil {
		cfg.Worker.Name = *yamlCfg.Worker.Name
	}
	if yamlCfg.Worker.Executable != nil {
		cfg.Worker.Executable = *yamlCfg.Worker.Executable
	}
	if yamlCfg.Linter.Command != nil {
		cfg.Linter.Command = *yamlCfg.Linter.Command
	}
	if yamlCfg.Linter.Args != nil {
		cfg.Linter.Args = *yamlCfg.Linter.Args
	}
	if yamlCfg.Linter.Format != nil {
		cfg.Linter.Format = *yamlCfg.Linter.Format
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.ScratchDir != "" {
		cfg.ScratchDir = yamlCfg.ScratchDir
	}
	if yamlCfg.History.Enabled != nil {
		cfg.History.Enabled = *yamlCfg.History.Enabled
	}
	if yamlCfg.History.DBPath != nil {
		cfg.History.DBPath = *yamlCfg.History.DBPath
	}
	if yamlCfg.Telemetry != "" {
		cfg.Telemetry = yamlCfg.Telemetry
	}

	return cfg, nil
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(workerName *string, timeout *time.Duration, logLevel *string) {
	if workerName != nil {
		c.Worker.Name = *workerName
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Worker.Name == "" {
		return fmt.Errorf("worker.name cannot be empty")
	}
	if c.Worker.Executable != "" && filepath.Base(c.Worker.Executable) != c.Worker.Executable {
		return fmt.Errorf("worker.executable must be a file name in the lintbox directory, got %q", c.Worker.Executable)
	}

	if c.Linter.Command == "" {
		return fmt.Errorf("linter.command cannot be empty")
	}
	switch c.Linter.Format {
	case worker.FormatMSBuild, worker.FormatJSON:
	default:
		return fmt.Errorf("invalid linter.format %q, must be one of: %s, %s", c.Linter.Format, worker.FormatMSBuild, worker.FormatJSON)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.ScratchDir == "" {
		return fmt.Errorf("scratch_dir cannot be empty")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if !telemetry.ValidExporter(c.Telemetry) {
		return fmt.Errorf("invalid telemetry %q, must be one of: %s, %s", c.Telemetry, telemetry.ExporterNone, telemetry.ExporterStdout)
	}

	return nil
}
