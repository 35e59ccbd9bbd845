package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the lintbox home directory.
const HomeEnv = "LINTBOX_HOME"

// GetLintboxHome returns the absolute lintbox home directory
// Priority order:
//  1. LINTBOX_HOME environment variable (if set)
//  2. .lintbox in the current working directory
//
// The directory is not created here; the log and history writers create
// what they use.
func GetLintboxHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, ".lintbox")
	}

	abs, err := filepath.Abs(home)
	if err != nil {
		return "", fmt.Errorf("resolve lintbox home %s: %w", home, err)
	}
	return abs, nil
}

// DefaultConfigPath returns $LINTBOX_HOME/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := GetLintboxHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// GetHistoryDBPath returns the absolute path to the history database
// Always returns: $LINTBOX_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetLintboxHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}

// getLogDir returns $LINTBOX_HOME/logs
func getLogDir() (string, error) {
	home, err := GetLintboxHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "logs"), nil
}
