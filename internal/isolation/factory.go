package isolation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/lintbox/internal/filelock"
	"github.com/harrison/lintbox/internal/logger"
	"github.com/harrison/lintbox/internal/worker"
)

// strippedEnvPrefixes are loader variables that could make the child resolve
// different code than what ships in the module directory.
var strippedEnvPrefixes = []string{
	"LD_PRELOAD=",
	"LD_LIBRARY_PATH=",
	"LD_AUDIT=",
	"DYLD_",
}

// Factory creates isolation contexts. A zero Factory is usable; it locates
// the running executable and uses a lintbox directory under os.TempDir.
type Factory struct {
	// ScratchRoot holds one directory per live context.
	ScratchRoot string

	// Executable is the worker binary's file name inside the module
	// directory. Defaults to the running executable's name.
	Executable string

	// ExtraEnv entries (KEY=value) are appended to every child environment.
	ExtraEnv []string

	// Locate returns the path of the running module. Defaults to
	// os.Executable with symlinks resolved.
	Locate func() (string, error)

	// Logger receives the module listing and lifecycle messages. May be nil.
	Logger logger.Logger
}

// NewFactory creates a Factory rooted at scratchRoot.
func NewFactory(scratchRoot string, log logger.Logger) *Factory {
	return &Factory{
		ScratchRoot: scratchRoot,
		Logger:      log,
	}
}

// NewContext builds a fresh context. Nothing is left allocated on failure.
func (f *Factory) NewContext() (*Context, error) {
	modulePath, err := f.locate()
	if err != nil {
		return nil, &CreationError{Op: "locate module", Err: err}
	}
	moduleDir := filepath.Dir(modulePath)

	exe := f.Executable
	if exe == "" {
		exe = filepath.Base(modulePath)
	}
	if exe != filepath.Base(exe) || exe == "." || exe == ".." {
		return nil, &CreationError{Op: "resolve worker", Err: fmt.Errorf("worker executable %q must be a file name", exe)}
	}

	f.logModules()

	id := uuid.NewString()
	scratch := filepath.Join(f.scratchRoot(), id)
	if err := os.MkdirAll(scratch, 0700); err != nil {
		return nil, &CreationError{Op: "create scratch dir", Err: err}
	}

	lock := filelock.NewFileLock(filepath.Join(scratch, lockFileName))
	acquired, err := lock.TryLock()
	if err == nil && !acquired {
		err = errors.New("context lock already held")
	}
	if err != nil {
		os.RemoveAll(scratch)
		return nil, &CreationError{Op: "lock context", Err: err}
	}

	ctx := &Context{
		ID:         id,
		ModuleDir:  moduleDir,
		BaseDir:    moduleDir,
		WorkerPath: filepath.Join(moduleDir, exe),
		ScratchDir: scratch,
		CreatedAt:  time.Now(),
		lock:       lock,
	}
	ctx.Env = f.childEnv(os.Environ(), ctx)

	f.debug(fmt.Sprintf("created isolation context %s (module dir %s)", id, moduleDir))
	return ctx, nil
}

// Prune removes context directories under ScratchRoot that are older than
// olderThan and whose lock is not held by a live context. It returns the
// number of directories removed.
func (f *Factory) Prune(olderThan time.Duration) (int, error) {
	root := f.scratchRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch root: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Only directories this package created
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		lock := filelock.NewFileLock(filepath.Join(dir, lockFileName))
		acquired, err := lock.TryLock()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !acquired {
			f.debug(fmt.Sprintf("context %s is still in use", entry.Name()))
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", dir, err))
		} else {
			removed++
			f.debug(fmt.Sprintf("pruned abandoned context %s", entry.Name()))
		}
		lock.Unlock()
	}

	return removed, errors.Join(errs...)
}

func (f *Factory) locate() (string, error) {
	locate := f.Locate
	if locate == nil {
		locate = os.Executable
	}
	path, err := locate()
	if err != nil {
		return "", err
	}
	return resolvePath(path)
}

// resolvePath returns the absolute, symlink-free location of path.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (f *Factory) scratchRoot() string {
	if f.ScratchRoot != "" {
		return f.ScratchRoot
	}
	return filepath.Join(os.TempDir(), "lintbox")
}

// childEnv filters base and adds the context variables.
func (f *Factory) childEnv(base []string, ctx *Context) []string {
	overridden := []string{"PWD=", "TMPDIR=", worker.EnvModuleDir + "=", worker.EnvContextID + "="}

	env := make([]string, 0, len(base)+4+len(f.ExtraEnv))
	for _, kv := range base {
		if hasAnyPrefix(kv, strippedEnvPrefixes) || hasAnyPrefix(kv, overridden) {
			continue
		}
		env = append(env, kv)
	}

	env = append(env,
		"PWD="+ctx.BaseDir,
		"TMPDIR="+ctx.ScratchDir,
		worker.EnvModuleDir+"="+ctx.ModuleDir,
		worker.EnvContextID+"="+ctx.ID,
	)
	return append(env, f.ExtraEnv...)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (f *Factory) debug(msg string) {
	if f.Logger != nil {
		f.Logger.LogDebug(msg)
	}
}
