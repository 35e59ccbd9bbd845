// Package boundary runs lint operations across a process isolation boundary.
//
// Each RunLint call creates a fresh isolation context, spawns the worker
// binary from the context's module directory, checks that the child speaks
// the same contract and version as the host, sends it exactly one request and
// copies the result back as JSON. Nothing survives the call: the child is
// reaped and the context released on every path.
package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/harrison/lintbox/internal/isolation"
	"github.com/harrison/lintbox/internal/logger"
	"github.com/harrison/lintbox/internal/models"
	"github.com/harrison/lintbox/internal/worker"
)

var _ worker.Worker = (*Invoker)(nil)

// Invoker is the host side of the lint boundary. It implements worker.Worker
// so callers use it exactly like an in-process worker.
// Thread-safe for concurrent use; calls share no state.
type Invoker struct {
	// Factory creates one isolation context per call.
	Factory *isolation.Factory

	// WorkerName is the fully-qualified worker the child instantiates.
	WorkerName string

	// Version must match the version the child announces.
	Version string

	// ConfigPath is forwarded to the child with --config when set.
	ConfigPath string

	// Logger receives lifecycle messages. Can be nil for silent operation.
	Logger logger.Logger

	// Observe, if set, is called on every state transition. It may be
	// called from concurrent invocations.
	Observe func(Transition)
}

// NewInvoker creates an Invoker for workerName at the given build version.
func NewInvoker(factory *isolation.Factory, workerName, version string) *Invoker {
	return &Invoker{
		Factory:    factory,
		WorkerName: workerName,
		Version:    version,
	}
}

// RunLint runs workerName against projectFile in a new isolated child.
//
// It returns either a result or an *Error, never both. Blocking is bounded
// only by ctx: cancelling it kills the child.
func (inv *Invoker) RunLint(ctx context.Context, projectFile string) (result *models.Result, err error) {
	start := time.Now()
	ctx, span := startInvocationSpan(ctx, inv.WorkerName, projectFile)

	run := &invocation{inv: inv, state: StateIdle}
	defer func() {
		endInvocationSpan(span, run.contextID, result, err)
		recordInvocationMetrics(ctx, inv.WorkerName, time.Since(start), err)
	}()

	// The child runs in another directory; pin the path's meaning here
	if abs, absErr := filepath.Abs(projectFile); absErr == nil {
		projectFile = abs
	}

	run.transition(StateContextCreating, nil)
	if inv.Factory == nil {
		return nil, run.fail(ErrContextCreation, "no isolation factory configured", nil)
	}
	ictx, err := inv.Factory.NewContext()
	if err != nil {
		return nil, run.fail(ErrContextCreation, err.Error(), err)
	}
	defer func() {
		if relErr := ictx.Release(); relErr != nil {
			inv.logWarn(fmt.Sprintf("failed to release context %s: %v", ictx.ID, relErr))
		}
	}()
	run.contextID = ictx.ID
	run.transition(StateContextReady, nil)

	run.transition(StateWorkerCreating, nil)
	workerPath, err := ictx.ResolveWorker()
	if err != nil {
		return nil, run.fail(ErrWorkerNotFound, err.Error(), err)
	}

	h, err := spawn(ctx, ictx, workerPath, inv.WorkerName, inv.ConfigPath, func(line string) {
		inv.logDebug(fmt.Sprintf("[%s] skipped worker output: %q", ictx.ID, line))
	})
	if err != nil {
		return nil, run.fail(ErrWorkerNotFound, err.Error(), err)
	}
	completed := false
	defer func() {
		if waitErr := h.close(!completed); waitErr != nil && completed {
			inv.logDebug(fmt.Sprintf("[%s] worker exited: %v", ictx.ID, waitErr))
		}
	}()
	inv.logDebug(fmt.Sprintf("[%s] spawned %s (pid %d)", ictx.ID, workerPath, h.pid()))

	if err := inv.bind(ctx, run, h, ictx.ID); err != nil {
		return nil, err
	}
	run.transition(StateWorkerReady, nil)

	run.transition(StateInvoking, nil)
	if err := h.conn.Send(worker.Frame{Type: worker.FrameLint, ProjectFile: projectFile}); err != nil {
		return nil, run.fail(ErrAnalysisFailure, inv.exitMessage(ctx, h, err), firstErr(ctx.Err(), err))
	}

	reply, err := h.conn.Receive()
	if err != nil {
		if errors.Is(err, worker.ErrMalformedFrame) {
			return nil, run.fail(ErrMarshaling, err.Error(), err)
		}
		return nil, run.fail(ErrAnalysisFailure, inv.exitMessage(ctx, h, err), firstErr(ctx.Err(), err))
	}

	switch reply.Type {
	case worker.FrameResult:
		var res models.Result
		if err := json.Unmarshal(reply.Result, &res); err != nil {
			return nil, run.fail(ErrMarshaling, fmt.Sprintf("failed to decode result: %v", err), err)
		}
		completed = true
		run.transition(StateCompleted, nil)
		return &res, nil
	case worker.FrameError:
		return nil, run.fail(kindForFrame(reply.Kind), reply.Message, nil)
	default:
		return nil, run.fail(ErrContractMismatch, fmt.Sprintf("unexpected %s frame in reply to lint request", reply.Type), nil)
	}
}

// bind reads the child's hello and checks it against what this host expects.
func (inv *Invoker) bind(ctx context.Context, run *invocation, h *handle, contextID string) error {
	hello, err := h.conn.Receive()
	if err != nil {
		if errors.Is(err, worker.ErrMalformedFrame) {
			return run.fail(ErrContractMismatch, err.Error(), err)
		}
		if ctx.Err() != nil {
			return run.fail(ErrAnalysisFailure, inv.exitMessage(ctx, h, err), ctx.Err())
		}
		// A child that dies before announcing itself could not load the worker
		return run.fail(ErrWorkerNotFound, inv.exitMessage(ctx, h, err), err)
	}

	switch {
	case hello.Type == worker.FrameError:
		return run.fail(kindForFrame(hello.Kind), hello.Message, nil)
	case hello.Type != worker.FrameHello:
		return run.fail(ErrContractMismatch, fmt.Sprintf("expected hello, got %s frame", hello.Type), nil)
	case hello.Contract != worker.ContractVersion:
		return run.fail(ErrContractMismatch,
			fmt.Sprintf("worker speaks contract %q, host expects %q", hello.Contract, worker.ContractVersion), nil)
	case hello.Version != inv.Version:
		return run.fail(ErrContractMismatch,
			fmt.Sprintf("worker version %q does not match host version %q", hello.Version, inv.Version), nil)
	case hello.Worker != inv.WorkerName:
		return run.fail(ErrContractMismatch,
			fmt.Sprintf("worker %q answered for %q", hello.Worker, inv.WorkerName), nil)
	case hello.ContextID != contextID:
		return run.fail(ErrContractMismatch,
			fmt.Sprintf("worker reports context %q, expected %q", hello.ContextID, contextID), nil)
	}
	return nil
}

// exitMessage describes a child that stopped talking.
func (inv *Invoker) exitMessage(ctx context.Context, h *handle, err error) string {
	if ctx.Err() != nil {
		return fmt.Sprintf("invocation cancelled: %v", ctx.Err())
	}

	msg := "worker exited unexpectedly"
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		msg = err.Error()
	}
	if waitErr := h.close(true); waitErr != nil {
		msg += fmt.Sprintf(" (%v)", waitErr)
	}
	if tail := h.stderrTail(); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (inv *Invoker) logDebug(msg string) {
	if inv.Logger != nil {
		inv.Logger.LogDebug(msg)
	}
}

func (inv *Invoker) logWarn(msg string) {
	if inv.Logger != nil {
		inv.Logger.LogWarn(msg)
	}
}

// invocation tracks the state machine of one RunLint call.
type invocation struct {
	inv       *Invoker
	state     State
	contextID string
}

func (r *invocation) transition(to State, err error) {
	t := Transition{
		From:      r.state,
		To:        to,
		ContextID: r.contextID,
		Err:       err,
		At:        time.Now(),
	}
	r.state = to

	if err != nil {
		r.inv.logDebug(fmt.Sprintf("[%s] %s -> %s: %v", r.contextID, t.From, t.To, err))
	} else {
		r.inv.logTrace(fmt.Sprintf("[%s] %s -> %s", r.contextID, t.From, t.To))
	}
	if r.inv.Observe != nil {
		r.inv.Observe(t)
	}
}

// fail moves to StateFailed and returns the boundary error for the current stage.
func (r *invocation) fail(kind error, message string, cause error) error {
	err := &Error{
		Stage:   r.state,
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
	r.transition(StateFailed, err)
	return err
}

func (inv *Invoker) logTrace(msg string) {
	if inv.Logger != nil {
		inv.Logger.LogTrace(msg)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
