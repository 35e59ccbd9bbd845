package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "lintbox") {
		t.Errorf("Help text should mention lintbox, got: %s", output)
	}
	if strings.Contains(output, "lint-worker") || strings.Contains(output, "internal") {
		t.Errorf("Help text should not list internal commands, got: %s", output)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "lintbox" {
		t.Errorf("Expected Use to be 'lintbox', got '%s'", cmd.Use)
	}

	want := map[string]bool{"lint": false, "history": false, "prune": false, "internal": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	worker, _, err := cmd.Find([]string{"internal", "lint-worker"})
	if err != nil {
		t.Fatalf("internal lint-worker not found: %v", err)
	}
	if !worker.Hidden {
		t.Error("lint-worker must be hidden")
	}
	if worker.Flags().Lookup("worker") == nil {
		t.Error("lint-worker must accept --worker")
	}
}

func TestPersistentFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: ExitLintFindings}
	if err.Error() != "exit status 1" {
		t.Errorf("Error() = %q", err.Error())
	}
}
