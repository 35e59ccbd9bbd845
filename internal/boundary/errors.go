package boundary

import (
	"errors"
	"fmt"

	"github.com/harrison/lintbox/internal/worker"
)

// Error kinds. Every error returned by Invoker.RunLint is an *Error whose
// Kind is one of these; match with errors.Is.
var (
	ErrContextCreation  = errors.New("context creation failed")
	ErrWorkerNotFound   = errors.New("worker not found")
	ErrContractMismatch = errors.New("worker contract mismatch")
	ErrAnalysisFailure  = errors.New("analysis failed")
	ErrMarshaling       = errors.New("result marshaling failed")
)

// Error identifies the stage of the boundary that failed.
type Error struct {
	Stage   State  // state the invocation was in when it failed
	Kind    error  // one of the Err* kinds above
	Message string // for analysis failures, the worker's own message unchanged
	Err     error  // underlying cause (optional)
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	return fmt.Sprintf("lint boundary: %v during %s: %s", e.Kind, e.Stage, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a short stable name for the kind of err, or "ok" for nil.
// Used as a metric attribute and in the history store.
func KindName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrContextCreation):
		return "context_creation"
	case errors.Is(err, ErrWorkerNotFound):
		return string(worker.KindWorkerNotFound)
	case errors.Is(err, ErrContractMismatch):
		return string(worker.KindContractMismatch)
	case errors.Is(err, ErrAnalysisFailure):
		return string(worker.KindAnalysisFailure)
	case errors.Is(err, ErrMarshaling):
		return string(worker.KindMarshaling)
	default:
		return "unknown"
	}
}

// kindForFrame maps an error frame's kind to a boundary kind.
func kindForFrame(kind worker.ErrorKind) error {
	switch kind {
	case worker.KindWorkerNotFound:
		return ErrWorkerNotFound
	case worker.KindContractMismatch:
		return ErrContractMismatch
	case worker.KindMarshaling:
		return ErrMarshaling
	default:
		return ErrAnalysisFailure
	}
}
