package worker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownWorker is returned when no factory is registered under a name.
var ErrUnknownWorker = errors.New("unknown worker")

// Factory builds a fresh worker instance. It is called once per child.
type Factory func() (Worker, error)

// Registry maps fully-qualified worker names to factories.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New instantiates the worker registered under name.
func (r *Registry) New(name string) (Worker, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, name)
	}

	w, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate worker %q: %w", name, err)
	}
	if w == nil {
		return nil, fmt.Errorf("factory for worker %q returned nil", name)
	}
	return w, nil
}

// Names returns the registered worker names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
