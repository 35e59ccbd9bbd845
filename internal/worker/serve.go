package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harrison/lintbox/internal/logger"
	"github.com/harrison/lintbox/internal/models"
)

// ServeOptions configures one run of the worker side of the protocol.
type ServeOptions struct {
	Registry  *Registry
	Name      string // fully-qualified worker name to instantiate
	Version   string // build version announced in the hello frame
	ContextID string
	In        io.Reader
	Out       io.Writer
	Logger    logger.Logger // nil for silence; never stdout
}

// Serve runs the worker side of a single invocation:
//
//  1. instantiate the named worker (an error frame replaces the hello if it cannot be found)
//  2. announce the contract with a hello frame
//  3. read exactly one lint request
//  4. run it and reply with a result or an error frame
//
// Failures of the worker itself are reported to the host as error frames and
// Serve returns nil once the terminal frame is written. A non-nil error means
// the channel to the host is broken.
func Serve(ctx context.Context, opts ServeOptions) error {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Registry == nil {
		return errors.New("worker registry is required")
	}

	conn := NewConn(opts.In, opts.Out)
	conn.Skipped = func(line string) {
		log.LogWarn(fmt.Sprintf("ignoring non-protocol input: %q", line))
	}

	w, err := opts.Registry.New(opts.Name)
	if err != nil {
		log.LogError(err.Error())
		kind := KindAnalysisFailure
		if errors.Is(err, ErrUnknownWorker) {
			kind = KindWorkerNotFound
		}
		return conn.Send(Frame{Type: FrameError, Kind: kind, Message: err.Error()})
	}

	if err := conn.Send(Frame{
		Type:      FrameHello,
		Contract:  ContractVersion,
		Version:   opts.Version,
		Worker:    opts.Name,
		PID:       os.Getpid(),
		ContextID: opts.ContextID,
	}); err != nil {
		return err
	}

	req, err := conn.Receive()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("host closed the channel before sending a request")
		}
		if errors.Is(err, ErrMalformedFrame) {
			return conn.Send(Frame{Type: FrameError, Kind: KindMarshaling, Message: err.Error()})
		}
		return err
	}
	if req.Type != FrameLint {
		return conn.Send(Frame{
			Type:    FrameError,
			Kind:    KindContractMismatch,
			Message: fmt.Sprintf("expected %s frame, got %s", FrameLint, req.Type),
		})
	}

	log.LogDebug(fmt.Sprintf("running %s on %s", opts.Name, req.ProjectFile))
	result, err := runWorker(ctx, w, req.ProjectFile)
	if err != nil {
		log.LogDebug(fmt.Sprintf("analysis failed: %v", err))
		return conn.Send(Frame{Type: FrameError, Kind: KindAnalysisFailure, Message: err.Error()})
	}

	data, err := json.Marshal(result)
	if err != nil {
		return conn.Send(Frame{
			Type:    FrameError,
			Kind:    KindMarshaling,
			Message: fmt.Sprintf("failed to encode result: %v", err),
		})
	}
	return conn.Send(Frame{Type: FrameResult, Result: data})
}

// runWorker calls the worker, converting a panic or a nil result into an error.
func runWorker(ctx context.Context, w Worker, projectFile string) (result *models.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	res, err := w.RunLint(ctx, projectFile)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("worker returned no result")
	}
	return res, nil
}
