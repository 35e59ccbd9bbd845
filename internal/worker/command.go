package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/lintbox/internal/models"
)

// Output formats understood by CommandWorker.
const (
	FormatMSBuild = "msbuild"
	FormatJSON    = "json"
)

// ErrLinterFailed is returned when the linter exits non-zero without
// producing any output to parse.
var ErrLinterFailed = errors.New("linter failed")

// CommandWorker runs an external linter binary against the project file and
// parses its report. It is the worker registered as DefaultWorkerName.
type CommandWorker struct {
	// Command is the linter executable. A bare name is looked up in
	// ModuleDir first and then in PATH.
	Command string

	// Args are passed before the project file.
	Args []string

	// Format is FormatMSBuild or FormatJSON.
	Format string

	// ModuleDir is the directory the host loaded lintbox from.
	ModuleDir string
}

// NewCommandWorker creates a CommandWorker, filling ModuleDir from the
// environment the host passes to the child.
func NewCommandWorker(command string, args []string, format string) *CommandWorker {
	return &CommandWorker{
		Command:   command,
		Args:      args,
		Format:    format,
		ModuleDir: os.Getenv(EnvModuleDir),
	}
}

// RunLint implements Worker.
func (w *CommandWorker) RunLint(ctx context.Context, projectFile string) (*models.Result, error) {
	start := time.Now()

	if _, err := os.Stat(projectFile); err != nil {
		return nil, err
	}

	command, err := w.resolveCommand()
	if err != nil {
		return nil, err
	}

	args := make([]string, len(w.Args), len(w.Args)+1)
	copy(args, w.Args)
	args = append(args, projectFile)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = filepath.Dir(projectFile)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Linters exit non-zero when they find issues; only fail on no output
	if runErr != nil && stdout.Len() == 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrLinterFailed, filepath.Base(command), msg)
	}

	diagnostics, err := ParseOutput(w.Format, stdout.Bytes())
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		ProjectFile: projectFile,
		Diagnostics: diagnostics,
		Linter:      filepath.Base(command),
		Duration:    time.Since(start),
	}
	result.Summarize()
	return result, nil
}

// resolveCommand finds the linter binary. Paths containing a separator are
// used as given.
func (w *CommandWorker) resolveCommand() (string, error) {
	if w.Command == "" {
		return "", errors.New("no linter command configured")
	}
	if strings.ContainsRune(w.Command, filepath.Separator) {
		return w.Command, nil
	}

	if w.ModuleDir != "" {
		candidate := filepath.Join(w.ModuleDir, w.Command)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0 {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(w.Command)
	if err != nil {
		return "", fmt.Errorf("linter %q not found: %w", w.Command, err)
	}
	return path, nil
}

// ParseOutput converts raw linter output into diagnostics.
func ParseOutput(format string, output []byte) ([]models.Diagnostic, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}

	switch format {
	case FormatMSBuild, "":
		return parseMSBuild(output), nil
	case FormatJSON:
		return parseJSON(output)
	default:
		return nil, fmt.Errorf("unsupported linter output format %q", format)
	}
}

// msbuildLine matches canonical compiler/linter lines such as
//
//	src/Lib.fs(12,5): warning FL0065: Prefer Seq.empty
//	src/Lib.fs(12,5,12,9): error FS0001: Type mismatch
//	src/Lib.fs(3,1): warning: Unused open
var msbuildLine = regexp.MustCompile(`^(.+?)\((\d+)(?:,(\d+))?(?:,\d+,\d+)?\)\s*:\s*(error|warning|info|message)(?:\s+([A-Za-z]+\d+))?\s*:\s*(.*)$`)

func parseMSBuild(output []byte) []models.Diagnostic {
	var diagnostics []models.Diagnostic

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := msbuildLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diagnostics = append(diagnostics, models.Diagnostic{
			File:     m[1],
			Line:     line,
			Column:   col,
			Severity: models.ParseSeverity(m[4]),
			Rule:     m[5],
			Message:  strings.TrimSpace(m[6]),
		})
	}
	return diagnostics
}

func parseJSON(output []byte) ([]models.Diagnostic, error) {
	trimmed := bytes.TrimSpace(output)

	if trimmed[0] == '[' {
		var diagnostics []models.Diagnostic
		if err := json.Unmarshal(trimmed, &diagnostics); err != nil {
			return nil, fmt.Errorf("failed to parse linter output: %w", err)
		}
		return diagnostics, nil
	}

	var report struct {
		Diagnostics []models.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("failed to parse linter output: %w", err)
	}
	return report.Diagnostics, nil
}
