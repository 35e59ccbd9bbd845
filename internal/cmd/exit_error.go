package cmd

import "fmt"

// Exit codes returned by lintbox lint.
const (
	ExitLintFindings = 1 // the result has errors (or warnings with --fail-on-warnings)
	ExitBoundary     = 2 // the isolated invocation itself failed
)

// ExitError carries a process exit code out of a command.
// When Err is nil main exits silently with Code.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
