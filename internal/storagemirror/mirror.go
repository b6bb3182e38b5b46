// Package storagemirror composes a storage.Facade with a stateengine.Engine
// into StorageWithStateMirror: Storage remains the source of truth,
// StateEngine is a write-through cache keyed by "namespace.key".
//
// The composition is explicit rather than implicit because it must uphold
// the mirror invariant: every key present in the mirror was, at some
// instant, present in Storage with the same value.
package storagemirror

import (
	"context"

	"github.com/homecore/kernel/internal/stateengine"
	"github.com/homecore/kernel/internal/storage"
)

// Mirror is the StorageWithStateMirror coordination primitive.
type Mirror struct {
	storage *storage.Facade
	state   *stateengine.Engine
}

// New composes storageFacade and stateEngine into a Mirror.
func New(storageFacade *storage.Facade, stateEngine *stateengine.Engine) *Mirror {
	return &Mirror{storage: storageFacade, state: stateEngine}
}

func mirrorKey(namespace, key string) string {
	return namespace + "." + key
}

// Get reads from Storage, the authoritative store.
func (m *Mirror) Get(ctx context.Context, namespace, key string) (map[string]interface{}, bool, error) {
	return m.storage.Get(ctx, namespace, key)
}

// ListKeys reads from Storage, the authoritative store.
func (m *Mirror) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	return m.storage.ListKeys(ctx, namespace)
}

// Set writes to Storage, then mirrors the value into StateEngine under
// "namespace.key". If the Storage write fails, any stale mirror entry for
// this key is best-effort deleted before the original error is returned, so
// a failed write never leaves a newly-populated (and wrong) mirror entry.
func (m *Mirror) Set(ctx context.Context, namespace, key string, value map[string]interface{}) error {
	if err := m.storage.Set(ctx, namespace, key, value); err != nil {
		m.state.Delete(mirrorKey(namespace, key))
		return err
	}
	m.state.Set(mirrorKey(namespace, key), value)
	return nil
}

// Delete removes from Storage first; on success, the mirror key is deleted
// too.
func (m *Mirror) Delete(ctx context.Context, namespace, key string) error {
	if err := m.storage.Delete(ctx, namespace, key); err != nil {
		return err
	}
	m.state.Delete(mirrorKey(namespace, key))
	return nil
}

// ClearNamespace clears Storage only. This is a deliberate asymmetry (open
// question resolved in DESIGN.md): the state mirror is a hint, not a full
// shadow, and stale per-key mirror entries for the cleared namespace are
// acceptable — they age out on next write or are never read again once the
// namespace itself is gone from Storage.
func (m *Mirror) ClearNamespace(ctx context.Context, namespace string) error {
	return m.storage.ClearNamespace(ctx, namespace)
}

// Close closes the underlying Storage adapter.
func (m *Mirror) Close(ctx context.Context) error {
	return m.storage.Close(ctx)
}

// MirrorGet reads directly from the StateEngine mirror (bypassing Storage),
// for callers that want the cache's eventually-consistent view — e.g. the
// CoreRuntime status flag, which is itself only ever written through Set.
func (m *Mirror) MirrorGet(namespace, key string) (any, bool) {
	return m.state.Get(mirrorKey(namespace, key))
}

// StateEngine exposes the underlying engine for components (CoreRuntime)
// that need direct TTL'd coordination state outside the mirror relationship.
func (m *Mirror) StateEngine() *stateengine.Engine {
	return m.state
}
