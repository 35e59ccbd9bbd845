package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/lintbox/internal/models"
)

// TestLogDirectoryCreation verifies .lintbox/logs/ directory is created on initialization
func TestLogDirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	logger, err := NewFileLogger()
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	logDir := filepath.Join(tmpDir, ".lintbox", "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Expected log directory %s to exist, but it doesn't", logDir)
	}
}

// TestLatestSymlink verifies latest.log symlink is created and points to current run
func TestLatestSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewFileLoggerWithDirAndLevel(tmpDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer logger.Close()

	symlinkPath := filepath.Join(tmpDir, "latest.log")
	linkInfo, err := os.Lstat(symlinkPath)
	if err != nil {
		t.Fatalf("Expected latest.log symlink to exist: %v", err)
	}
	if linkInfo.Mode()&os.ModeSymlink == 0 {
		t.Error("Expected latest.log to be a symlink")
	}

	target, err := os.Readlink(symlinkPath)
	if err != nil {
		t.Fatalf("Failed to read symlink: %v", err)
	}
	if target != filepath.Base(logger.Path()) {
		t.Errorf("Expected symlink to point to %s, got %s", filepath.Base(logger.Path()), target)
	}
	if !strings.HasPrefix(target, "run-") {
		t.Errorf("Expected symlink to point to run-*.log file, got %s", target)
	}
}

// TestFileLogResult verifies results and their diagnostics land in the run log
func TestFileLogResult(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewFileLoggerWithDirAndLevel(tmpDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}

	result := &models.Result{
		ProjectFile: "Service.fsproj",
		Duration:    2 * time.Second,
		Diagnostics: []models.Diagnostic{
			{Rule: "FL0065", Severity: models.SeverityWarning, Message: "Prefer Seq.empty", File: "Lib.fs", Line: 4, Column: 2},
			{Rule: "FL0001", Severity: models.SeverityError, Message: "Tuple spacing"},
		},
	}
	result.Summarize()
	logger.LogResult(result)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content := readRunLog(t, tmpDir)
	for _, want := range []string{
		"=== lintbox run log ===",
		"Service.fsproj: errors (1 errors, 1 warnings) in 2.0s",
		"Lib.fs:4:2 warning FL0065: Prefer Seq.empty",
		"- error FL0001: Tuple spacing",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("run log missing %q:\n%s", want, content)
		}
	}
}

// TestConcurrentLogWrites verifies thread-safe logging
func TestConcurrentLogWrites(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewFileLoggerWithDirAndLevel(tmpDir, "debug")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.LogDebug("context created")
			logger.LogResult(&models.Result{ProjectFile: "P.fsproj", Status: models.StatusClean})
		}(i)
	}
	wg.Wait()

	content := readRunLog(t, tmpDir)
	if got := strings.Count(content, "context created"); got != 10 {
		t.Errorf("expected 10 debug lines, got %d", got)
	}
}

// TestNewFileLoggerInvalidPath verifies error handling for invalid paths
func TestNewFileLoggerInvalidPath(t *testing.T) {
	_, err := NewFileLoggerWithDirAndLevel("/tmp/lintbox-test\x00/logs", "info")
	if err == nil {
		t.Error("Expected error when creating logger with invalid path")
	}
}

// TestCloseTwice verifies closing logger twice doesn't error
func TestCloseTwice(t *testing.T) {
	logger, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}

	// Writes after close are dropped
	logger.LogError("after close")
}

// Helper function to read the current run log file
func readRunLog(t *testing.T, logDir string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("Failed to read run log: %v", err)
	}
	return string(content)
}
