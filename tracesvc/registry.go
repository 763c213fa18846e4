// Package tracesvc serves a task's execution trace over Connect RPC. It
// is the concrete home for spec.md §1's "trace serialization / printers"
// external collaborator: the core produces immutable ShallowTrace/Trace
// snapshots, and this package is one consumer of them.
package tracesvc

import (
	"sync"

	"github.com/parseq/parseq/task"
)

// Traceable is the surface a *task.Task[T] satisfies regardless of its
// result type T: enough for the registry and server to answer trace
// queries without being generic over T themselves.
type Traceable interface {
	ID() string
	ShallowTrace() task.ShallowTrace
}

// Registry maps task UUIDs to registered tasks, the way
// observability.registry maps observer names to Observers: a
// sync.RWMutex-guarded map with named lookup.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Traceable
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Traceable)}
}

// Register adds or replaces t under its own ID.
func (r *Registry) Register(t Traceable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID()] = t
}

// Unregister removes the task with the given ID, if present.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

// Lookup returns the task registered under id, if any.
func (r *Registry) Lookup(id string) (Traceable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}
