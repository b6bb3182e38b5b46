package storagemirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/stateengine"
	"github.com/homecore/kernel/internal/storage"
)

// stubAdapter fails the failOnSet-th call to Set (counting from 1), letting
// tests exercise the rollback path deterministically.
type stubAdapter struct {
	data      map[string]map[string]map[string]interface{}
	setCount  int
	failOnSet int // 0 means never fail
}

func newStubAdapter(failOnSet int) *stubAdapter {
	return &stubAdapter{data: make(map[string]map[string]map[string]interface{}), failOnSet: failOnSet}
}

func (s *stubAdapter) Get(_ context.Context, namespace, key string) (map[string]interface{}, bool, error) {
	ns, ok := s.data[namespace]
	if !ok {
		return nil, false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

func (s *stubAdapter) Set(_ context.Context, namespace, key string, value map[string]interface{}) error {
	s.setCount++
	if s.failOnSet != 0 && s.setCount == s.failOnSet {
		return errors.New("adapter failure")
	}
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]map[string]interface{})
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *stubAdapter) Delete(_ context.Context, namespace, key string) error {
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *stubAdapter) ListKeys(_ context.Context, namespace string) ([]string, error) {
	var keys []string
	for k := range s.data[namespace] {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *stubAdapter) ClearNamespace(_ context.Context, namespace string) error {
	delete(s.data, namespace)
	return nil
}

func (s *stubAdapter) Close(_ context.Context) error { return nil }

func (s *stubAdapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubAdapter) BatchSet(ctx context.Context, records []storage.Record) error {
	for _, r := range records {
		if err := s.Set(ctx, r.Namespace, r.Key, r.Value); err != nil {
			return err
		}
	}
	return nil
}

func TestSetMirrorsIntoStateEngine(t *testing.T) {
	adapter := newStubAdapter(0)
	m := New(storage.NewFacade(adapter), stateengine.New())

	require.NoError(t, m.Set(context.Background(), "ns", "k1", map[string]interface{}{"v": 1.0}))

	v, ok := m.MirrorGet("ns", "k1")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"v": 1.0}, v)
}

func TestStorageMirrorRollbackScenario(t *testing.T) {
	// Scenario from spec §8.3: second Set fails; mirror must not contain the
	// failed value, but must still contain the prior successful one.
	adapter := newStubAdapter(2)
	m := New(storage.NewFacade(adapter), stateengine.New())

	require.NoError(t, m.Set(context.Background(), "ns", "k1", map[string]interface{}{"v": 1.0}))
	err := m.Set(context.Background(), "ns", "k2", map[string]interface{}{"v": 2.0})
	require.Error(t, err)

	v1, ok := m.MirrorGet("ns", "k1")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"v": 1.0}, v1)

	_, ok = m.MirrorGet("ns", "k2")
	assert.False(t, ok)
}

func TestDeleteRemovesMirrorEntry(t *testing.T) {
	adapter := newStubAdapter(0)
	m := New(storage.NewFacade(adapter), stateengine.New())

	require.NoError(t, m.Set(context.Background(), "ns", "k1", map[string]interface{}{"v": 1.0}))
	require.NoError(t, m.Delete(context.Background(), "ns", "k1"))

	_, ok := m.MirrorGet("ns", "k1")
	assert.False(t, ok)
}

func TestClearNamespaceDoesNotTouchMirror(t *testing.T) {
	adapter := newStubAdapter(0)
	m := New(storage.NewFacade(adapter), stateengine.New())

	require.NoError(t, m.Set(context.Background(), "ns", "k1", map[string]interface{}{"v": 1.0}))
	require.NoError(t, m.ClearNamespace(context.Background(), "ns"))

	// Deliberate asymmetry: mirror still has the stale entry.
	_, ok := m.MirrorGet("ns", "k1")
	assert.True(t, ok)

	// But Storage itself is authoritative and now empty.
	_, ok, err := m.Get(context.Background(), "ns", "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetReadsFromStorageNotMirror(t *testing.T) {
	adapter := newStubAdapter(0)
	m := New(storage.NewFacade(adapter), stateengine.New())

	require.NoError(t, m.Set(context.Background(), "ns", "k1", map[string]interface{}{"v": 1.0}))

	v, ok, err := m.Get(context.Background(), "ns", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"v": 1.0}, v)
}
