package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Severity is the severity level of a lint diagnostic.
type Severity int

const (
	// SeverityInfo is informational and never affects status.
	SeverityInfo Severity = iota
	// SeverityWarning is reported but does not make a result fail.
	SeverityWarning
	// SeverityError makes a result fail.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the severity names emitted by common linters.
// Unknown values default to SeverityWarning.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "fatal", "critical":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "info", "note", "hint", "style", "message":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either a severity name or its numeric value.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = ParseSeverity(name)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid severity %s", string(data))
	}
	if n < int(SeverityInfo) || n > int(SeverityError) {
		return fmt.Errorf("severity out of range: %d", n)
	}
	*s = Severity(n)
	return nil
}

// Diagnostic is a single finding reported by the linter.
type Diagnostic struct {
	Rule     string   `json:"rule,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

// Location returns file:line:col, dropping the parts that are unknown.
func (d Diagnostic) Location() string {
	if d.File == "" {
		return ""
	}
	loc := d.File
	if d.Line > 0 {
		loc += ":" + strconv.Itoa(d.Line)
		if d.Column > 0 {
			loc += ":" + strconv.Itoa(d.Column)
		}
	}
	return loc
}
