package reducer

import (
	"sync"

	"github.com/kolkov/detrace/internal/race/shadowstack"
)

// Registry tracks the live per-worker views, standing in for the host
// scheduler's reducer registration. Views register on construction of their
// worker context and must be released on every exit path; the returned
// release function is idempotent so deferred and explicit teardown can
// coexist.
type Registry struct {
	mu    sync.Mutex
	next  uint64
	views map[uint64]*shadowstack.ShadowStack
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[uint64]*shadowstack.ShadowStack)}
}

// Register adds a view and returns its release function.
func (r *Registry) Register(view *shadowstack.ShadowStack) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.views[id] = view

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.views, id)
		})
	}
}

// Len returns the number of registered views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
