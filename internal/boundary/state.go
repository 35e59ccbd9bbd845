package boundary

import "time"

// State is a step in the life of a single RunLint call.
type State int

const (
	StateIdle State = iota
	StateContextCreating
	StateContextReady
	StateWorkerCreating
	StateWorkerReady
	StateInvoking
	StateCompleted
	StateFailed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateContextCreating:
		return "context-creating"
	case StateContextReady:
		return "context-ready"
	case StateWorkerCreating:
		return "worker-creating"
	case StateWorkerReady:
		return "worker-ready"
	case StateInvoking:
		return "invoking"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Transition is reported to Invoker.Observe on every state change.
type Transition struct {
	From      State
	To        State
	ContextID string // empty until the context exists
	Err       error  // set when To is StateFailed
	At        time.Time
}
