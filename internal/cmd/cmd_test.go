package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// The test binary doubles as the lintbox worker child: with
// LINTBOX_CMD_TEST_WORKER=1 it runs the CLI on its own arguments.
func TestMain(m *testing.M) {
	if os.Getenv("LINTBOX_CMD_TEST_WORKER") == "1" {
		root := NewRootCommand()
		root.SetArgs(os.Args[1:])
		if err := root.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// testEnv is a throwaway lintbox installation: config, scratch, logs and
// history all live under one temp dir.
type testEnv struct {
	dir        string
	configPath string
	scratchDir string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	linter := filepath.Join(dir, "fake-lint")
	script := `#!/bin/sh
case "$1" in
  *Broken*) echo "Lib.fs(1,1): error FL0001: Tuple spacing" ;;
esac
echo "Lib.fs(2,5): warning FL0065: Prefer Seq.empty"
echo "App.fs(9,1): warning FL0014: Redundant parens"
`
	if err := os.WriteFile(linter, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		scratchDir: filepath.Join(dir, "scratch"),
		dbPath:     filepath.Join(dir, "history.db"),
	}
	config := fmt.Sprintf(`linter:
  command: %s
  args: []
  format: msbuild
log_dir: %s
scratch_dir: %s
history:
  enabled: true
  db_path: %s
`, linter, filepath.Join(dir, "logs"), env.scratchDir, env.dbPath)
	if err := os.WriteFile(env.configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	return env
}

// project creates an empty project file with the given name.
func (e *testEnv) project(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte("<Project />\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes lintbox with --config pointing at the test config.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", e.configPath))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
