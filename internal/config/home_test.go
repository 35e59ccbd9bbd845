package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetLintboxHomeFromEnv(t *testing.T) {
	home := filepath.Join(t.TempDir(), "custom-home")
	t.Setenv(HomeEnv, home)

	got, err := GetLintboxHome()
	if err != nil {
		t.Fatalf("GetLintboxHome() error = %v", err)
	}
	if got != home {
		t.Errorf("GetLintboxHome() = %q, want %q", got, home)
	}
	if _, err := os.Stat(home); !os.IsNotExist(err) {
		t.Errorf("GetLintboxHome() must not create %s", home)
	}

	dbPath, err := GetHistoryDBPath()
	if err != nil {
		t.Fatalf("GetHistoryDBPath() error = %v", err)
	}
	if dbPath != filepath.Join(home, "history.db") {
		t.Errorf("GetHistoryDBPath() = %q", dbPath)
	}

	cfgPath, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	if cfgPath != filepath.Join(home, "config.yaml") {
		t.Errorf("DefaultConfigPath() = %q", cfgPath)
	}
}

func TestGetLintboxHomeRelativeEnv(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv(HomeEnv, "state")

	got, err := GetLintboxHome()
	if err != nil {
		t.Fatalf("GetLintboxHome() error = %v", err)
	}
	if got != filepath.Join(dir, "state") {
		t.Errorf("GetLintboxHome() = %q, want %q", got, filepath.Join(dir, "state"))
	}
}

func TestGetLintboxHomeFallsBackToWorkingDir(t *testing.T) {
	t.Setenv(HomeEnv, "")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	got, err := GetLintboxHome()
	if err != nil {
		t.Fatalf("GetLintboxHome() error = %v", err)
	}
	if got != filepath.Join(dir, ".lintbox") {
		t.Errorf("GetLintboxHome() = %q, want %q", got, filepath.Join(dir, ".lintbox"))
	}
}
