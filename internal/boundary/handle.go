package boundary

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/harrison/lintbox/internal/isolation"
	"github.com/harrison/lintbox/internal/worker"
)

// stderrTailSize bounds how much child stderr is kept for error messages.
const stderrTailSize = 4096

// waitDelay bounds how long Wait blocks on pipes after the child is killed.
const waitDelay = 2 * time.Second

// handle is one spawned worker child and its protocol channel.
type handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	conn   *worker.Conn
	stderr *tailBuffer
	once   sync.Once
	err    error
}

// spawn starts the worker child inside ictx.
func spawn(ctx context.Context, ictx *isolation.Context, workerPath, workerName, configPath string, onSkip func(string)) (*handle, error) {
	args := []string{"internal", "lint-worker", "--worker", workerName}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.CommandContext(ctx, workerPath, args...)
	cmd.Dir = ictx.BaseDir
	cmd.Env = ictx.Env
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTailSize}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	conn := worker.NewConn(stdout, stdin)
	conn.Skipped = onSkip

	return &handle{
		cmd:    cmd,
		stdin:  stdin,
		conn:   conn,
		stderr: stderr,
	}, nil
}

// pid returns the child's process id.
func (h *handle) pid() int {
	return h.cmd.Process.Pid
}

// close reaps the child. With kill set the child is terminated first;
// otherwise it is expected to exit on its own once stdin closes.
func (h *handle) close(kill bool) error {
	h.once.Do(func() {
		if kill {
			h.cmd.Process.Kill()
		}
		h.stdin.Close()
		h.err = h.cmd.Wait()
	})
	return h.err
}

// stderrTail returns the last lines the child wrote to stderr.
func (h *handle) stderrTail() string {
	return strings.TrimSpace(h.stderr.String())
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
