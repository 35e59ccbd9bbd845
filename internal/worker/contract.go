// Package worker defines the capability shared by both sides of the lint
// boundary and everything that runs on the worker side of it.
//
// The host never links a concrete worker into its own call path. It spawns a
// child process, names the worker it wants, and talks to it over the JSON
// line protocol in protocol.go. Serve is the child's half of that exchange.
package worker

import (
	"context"

	"github.com/harrison/lintbox/internal/models"
)

// ContractVersion identifies the wire contract. Host and child must agree on
// it exactly; there is no negotiation.
const ContractVersion = "lintbox.worker/v1"

// DefaultWorkerName is the fully-qualified identity of the built-in worker.
const DefaultWorkerName = "lintbox/worker.CommandWorker"

// Environment passed from the host to the worker child.
const (
	EnvModuleDir = "LINTBOX_MODULE_DIR"
	EnvContextID = "LINTBOX_CONTEXT_ID"
)

// Worker runs one lint operation against a project file.
//
// It is implemented by the concrete workers that live inside the child and by
// boundary.Invoker on the host side, so callers cannot tell which side of the
// boundary they are talking to.
type Worker interface {
	RunLint(ctx context.Context, projectFile string) (*models.Result, error)
}

// Func adapts a plain function to the Worker interface.
type Func func(ctx context.Context, projectFile string) (*models.Result, error)

// RunLint calls f.
func (f Func) RunLint(ctx context.Context, projectFile string) (*models.Result, error) {
	return f(ctx, projectFile)
}
