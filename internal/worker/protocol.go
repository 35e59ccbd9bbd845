package worker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FrameType identifies a protocol message.
type FrameType string

// Frame types, in the order they normally appear on the wire.
const (
	FrameHello  FrameType = "hello"  // child -> host, first frame
	FrameLint   FrameType = "lint"   // host -> child, exactly one
	FrameResult FrameType = "result" // child -> host, terminal
	FrameError  FrameType = "error"  // child -> host, terminal
)

// ErrorKind classifies an error frame.
type ErrorKind string

// Error kinds reported by the child.
const (
	KindWorkerNotFound   ErrorKind = "worker_not_found"
	KindContractMismatch ErrorKind = "contract_mismatch"
	KindAnalysisFailure  ErrorKind = "analysis_failure"
	KindMarshaling       ErrorKind = "marshaling"
)

// ErrMalformedFrame is returned by Receive for a line that looks like JSON
// but does not decode into a Frame.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one line of the worker protocol.
// Only the fields relevant to Type are set.
type Frame struct {
	Type FrameType `json:"type"`

	// hello
	Contract  string `json:"contract,omitempty"`
	Version   string `json:"version,omitempty"`
	Worker    string `json:"worker,omitempty"`
	PID       int    `json:"pid,omitempty"`
	ContextID string `json:"context_id,omitempty"`

	// lint
	ProjectFile string `json:"project_file,omitempty"`

	// result
	Result json.RawMessage `json:"result,omitempty"`

	// error
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Conn reads and writes frames as JSON lines.
//
// Lines that do not start with '{' are skipped so that stray output from
// libraries writing to stdout cannot break the exchange. Skipped, if set, is
// called with every such line.
type Conn struct {
	r  *bufio.Reader
	w  io.Writer
	mu sync.Mutex

	Skipped func(line string)
}

// NewConn creates a Conn reading frames from r and writing frames to w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		r: bufio.NewReaderSize(r, 64*1024),
		w: w,
	}
}

// Send writes one frame followed by a newline.
func (c *Conn) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", f.Type, err)
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", f.Type, err)
	}
	return nil
}

// Receive returns the next frame. It returns io.EOF when the peer closed the
// stream cleanly between frames and io.ErrUnexpectedEOF when a line was cut
// short.
func (c *Conn) Receive() (*Frame, error) {
	for {
		line, err := c.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		eof := err != nil

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if eof {
				return nil, io.EOF
			}
			continue
		}
		if trimmed[0] != '{' {
			if c.Skipped != nil {
				c.Skipped(string(trimmed))
			}
			if eof {
				return nil, io.EOF
			}
			continue
		}
		if eof {
			// A frame is always newline-terminated
			return nil, io.ErrUnexpectedEOF
		}

		var f Frame
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Type == "" {
			return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
		}
		return &f, nil
	}
}
