// Package isolation creates the per-invocation execution contexts the lint
// boundary runs its worker children in.
//
// A Context pins down everything that decides which code a child loads: the
// module directory the worker binary must come from, the working directory,
// and an environment with loader redirection variables removed. Each context
// owns a private scratch directory, locked for as long as the context is
// alive, so that abandoned contexts can be found and pruned later.
package isolation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/lintbox/internal/filelock"
)

// lockFileName is the per-context lock held for the context's lifetime.
const lockFileName = "context.lock"

// ErrWorkerMissing is returned by ResolveWorker when the worker executable is
// not usable from the module directory.
var ErrWorkerMissing = errors.New("worker executable not found in module directory")

// CreationError reports a failure to build a context.
type CreationError struct {
	Op  string
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("isolation context: %s: %v", e.Op, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// Context is one isolated execution context. It is used for a single
// invocation and must be released afterwards.
type Context struct {
	// ID uniquely identifies the context.
	ID string

	// ModuleDir is the only directory the worker executable may be loaded from.
	ModuleDir string

	// BaseDir is the child's working directory. It equals ModuleDir.
	BaseDir string

	// WorkerPath is the absolute path of the worker executable.
	WorkerPath string

	// ScratchDir is private to this context and removed on Release.
	ScratchDir string

	// Env is the complete environment for the child.
	Env []string

	CreatedAt time.Time

	mu       sync.Mutex
	lock     *filelock.FileLock
	released bool
}

// ResolveWorker checks that WorkerPath is a regular executable file whose
// real location is still inside ModuleDir, and returns that location.
func (c *Context) ResolveWorker() (string, error) {
	info, err := os.Stat(c.WorkerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkerMissing, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrWorkerMissing, c.WorkerPath)
	}
	if info.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrWorkerMissing, c.WorkerPath)
	}

	real, err := filepath.EvalSymlinks(c.WorkerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkerMissing, err)
	}
	if !within(c.ModuleDir, real) {
		return "", fmt.Errorf("%w: %s resolves outside %s", ErrWorkerMissing, real, c.ModuleDir)
	}
	return real, nil
}

// Released reports whether Release has been called.
func (c *Context) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Release unlocks and removes the scratch directory. Safe to call more than once.
func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true

	var errs []error
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ScratchDir != "" {
		if err := os.RemoveAll(c.ScratchDir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove scratch dir: %w", err))
		}
	}
	return errors.Join(errs...)
}

// within reports whether path is dir or below it. Both must be clean and absolute.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
