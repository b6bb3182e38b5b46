// Package memory implements storage.Adapter over an in-process map. It is
// the default backend (RUNTIME_STORAGE_BACKEND=memory) and the one used by
// every test that does not specifically exercise the Postgres adapter.
package memory

import (
	"context"
	"sync"

	"github.com/homecore/kernel/internal/storage"
)

// Adapter is a mutex-guarded namespace -> key -> value map, with the value
// always a JSON-object-shaped map.
type Adapter struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]interface{}
}

// New creates an empty memory adapter.
func New() *Adapter {
	return &Adapter{data: make(map[string]map[string]map[string]interface{})}
}

func cloneValue(value map[string]interface{}) map[string]interface{} {
	if value == nil {
		return nil
	}
	out := make(map[string]interface{}, len(value))
	for k, v := range value {
		out[k] = v
	}
	return out
}

func (a *Adapter) Get(_ context.Context, namespace, key string) (map[string]interface{}, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ns, ok := a.data[namespace]
	if !ok {
		return nil, false, nil
	}
	value, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	return cloneValue(value), true, nil
}

func (a *Adapter) Set(_ context.Context, namespace, key string, value map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ns, ok := a.data[namespace]
	if !ok {
		ns = make(map[string]map[string]interface{})
		a.data[namespace] = ns
	}
	ns[key] = cloneValue(value)
	return nil
}

func (a *Adapter) Delete(_ context.Context, namespace, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ns, ok := a.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (a *Adapter) ListKeys(_ context.Context, namespace string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ns, ok := a.data[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}

func (a *Adapter) ClearNamespace(_ context.Context, namespace string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, namespace)
	return nil
}

func (a *Adapter) Close(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = make(map[string]map[string]map[string]interface{})
	return nil
}

// WithTransaction has no native transaction concept here; the adapter's own
// mutex already serializes every operation fn performs, so it simply runs fn.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (a *Adapter) BatchSet(ctx context.Context, records []storage.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rec := range records {
		ns, ok := a.data[rec.Namespace]
		if !ok {
			ns = make(map[string]map[string]interface{})
			a.data[rec.Namespace] = ns
		}
		ns[rec.Key] = cloneValue(rec.Value)
	}
	return nil
}

var _ storage.Adapter = (*Adapter)(nil)
