// Package integrationregistry is a lightweight named registry of
// external-integration descriptors (OAuth providers, webhook targets,
// smart-home vendor APIs) that CoreRuntime constructs alongside
// HttpRegistry. It is pure introspection/bookkeeping: plugins don't call
// through it, it only lets the admin surfaces answer "what third-party
// integrations are configured."
//
// Supplemented feature grounded in original_source/core/integration_registry.py.
package integrationregistry

import "sync"

// Descriptor describes one configured (or not-yet-configured) external
// integration.
type Descriptor struct {
	Name       string
	Kind       string
	Configured bool
	Details    map[string]string
}

// Registry holds descriptors keyed by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
	order   []string
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register adds or replaces the descriptor for d.Name.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.entries[d.Name] = d
}

// Get returns the descriptor for name, if any.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Remove deletes name from the registry.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear removes every descriptor.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Descriptor)
	r.order = nil
}
