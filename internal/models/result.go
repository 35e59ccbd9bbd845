package models

import "time"

// Lint result status constants
const (
	StatusClean    = "clean"    // No diagnostics at warning level or above
	StatusWarnings = "warnings" // Warnings found, no errors
	StatusErrors   = "errors"   // At least one error-level diagnostic
)

// Result is the outcome of one lint run against a project file.
// It crosses the worker boundary as JSON, so every field must be plain data:
// no channels, funcs, or pointers into worker-owned state.
type Result struct {
	ProjectFile string        `json:"project_file"`
	Status      string        `json:"status"`
	Errors      int           `json:"errors"`
	Warnings    int           `json:"warnings"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Linter      string        `json:"linter,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Summarize recomputes Errors, Warnings and Status.
// When diagnostics are present the counts are derived from them; otherwise
// the existing counts are kept and only Status is refreshed.
func (r *Result) Summarize() {
	if len(r.Diagnostics) > 0 {
		r.Errors = 0
		r.Warnings = 0
		for _, d := range r.Diagnostics {
			switch d.Severity {
			case SeverityError:
				r.Errors++
			case SeverityWarning:
				r.Warnings++
			}
		}
	}

	switch {
	case r.Errors > 0:
		r.Status = StatusErrors
	case r.Warnings > 0:
		r.Status = StatusWarnings
	default:
		r.Status = StatusClean
	}
}

// HasErrors reports whether any error-level diagnostic was found.
func (r *Result) HasErrors() bool {
	return r.Errors > 0
}

// HasWarnings reports whether any warning-level diagnostic was found.
func (r *Result) HasWarnings() bool {
	return r.Warnings > 0
}

// Clone returns a deep copy of the result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Diagnostics != nil {
		clone.Diagnostics = make([]Diagnostic, len(r.Diagnostics))
		copy(clone.Diagnostics, r.Diagnostics)
	}
	return &clone
}
