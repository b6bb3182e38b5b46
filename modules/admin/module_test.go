package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/httpregistry"
	"github.com/homecore/kernel/internal/registry"
)

func newTestModule() (*Module, *registry.Registry, *httpregistry.Registry) {
	services := registry.New(0)
	httpReg := httpregistry.New()
	health := func(ctx context.Context) (string, map[string]interface{}) {
		return "healthy", map[string]interface{}{"storage": "ok"}
	}
	metrics := func(ctx context.Context) any {
		return map[string]interface{}{"plugin_count": 0}
	}
	return New(health, metrics, services, httpReg), services, httpReg
}

func TestStartRegistersServicesAndRoutes(t *testing.T) {
	m, services, httpReg := newTestModule()
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	assert.True(t, services.HasService("admin.health"))
	assert.True(t, services.HasService("admin.metrics"))

	paths := map[string]bool{}
	for _, ep := range httpReg.List() {
		paths[ep.Path] = true
	}
	assert.True(t, paths["/admin/v1/health"])
	assert.True(t, paths["/admin/v1/metrics"])
}

func TestHealthServiceReportsStatus(t *testing.T) {
	m, services, _ := newTestModule()
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	result, err := services.Call(ctx, "admin.health", registry.Args{})
	require.NoError(t, err)
	body, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "healthy", body["status"])
}

func TestStopUnregistersEverything(t *testing.T) {
	m, services, httpReg := newTestModule()
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))

	assert.False(t, services.HasService("admin.health"))
	assert.False(t, services.HasService("admin.metrics"))
	assert.Empty(t, httpReg.List())
}
