package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/storage"
)

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.Set(ctx, "devices", "k1", map[string]interface{}{"on": true}))

	value, found, err := a.Get(ctx, "devices", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, true, value["on"])
}

func TestGetAbsentKeyReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	a := New()

	value, found, err := a.Get(ctx, "devices", "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestDeleteThenGetIsAbsent(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.Set(ctx, "ns", "k", map[string]interface{}{"v": 1}))
	require.NoError(t, a.Delete(ctx, "ns", "k"))

	_, found, err := a.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListKeys(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.Set(ctx, "ns", "a", map[string]interface{}{}))
	require.NoError(t, a.Set(ctx, "ns", "b", map[string]interface{}{}))

	keys, err := a.ListKeys(ctx, "ns")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestClearNamespace(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.Set(ctx, "ns", "a", map[string]interface{}{}))
	require.NoError(t, a.ClearNamespace(ctx, "ns"))

	keys, err := a.ListKeys(ctx, "ns")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGetReturnsACopyNotAnAlias(t *testing.T) {
	ctx := context.Background()
	a := New()

	original := map[string]interface{}{"count": 1}
	require.NoError(t, a.Set(ctx, "ns", "k", original))
	original["count"] = 999

	value, _, err := a.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, 1, value["count"])
}

func TestBatchSet(t *testing.T) {
	ctx := context.Background()
	a := New()

	err := a.BatchSet(ctx, []storage.Record{
		{Namespace: "ns", Key: "a", Value: map[string]interface{}{"x": 1}},
		{Namespace: "ns", Key: "b", Value: map[string]interface{}{"x": 2}},
	})
	require.NoError(t, err)

	keys, err := a.ListKeys(ctx, "ns")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}
