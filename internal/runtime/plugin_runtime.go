package runtime

import (
	"context"

	"github.com/homecore/kernel/internal/httpregistry"
	"github.com/homecore/kernel/internal/plugin"
	"github.com/homecore/kernel/internal/registry"
)

// pluginRuntime adapts CoreRuntime's coordination primitives into the
// narrow plugin.Runtime surface, scoped to one plugin's name so
// ServiceRegistry/HttpRegistry entries can be attributed back to their
// owner. It holds no state of its own beyond the plugin name; the kernel
// still owns every primitive it proxies to.
type pluginRuntime struct {
	name string
	rt   *CoreRuntime
}

func (p *pluginRuntime) PluginName() string { return p.name }

func (p *pluginRuntime) EventSubscribe(eventType string, handler func(ctx context.Context, payload any)) {
	p.rt.EventBus.Subscribe(eventType, handler)
}

func (p *pluginRuntime) EventUnsubscribe(eventType string, handler func(ctx context.Context, payload any)) {
	p.rt.EventBus.Unsubscribe(eventType, handler)
}

func (p *pluginRuntime) EventPublish(ctx context.Context, eventType string, payload any) {
	p.rt.EventBus.Publish(ctx, eventType, payload)
}

func (p *pluginRuntime) ServiceRegister(name string, fn func(ctx context.Context, args plugin.ServiceArgs) (any, error), version string) {
	p.rt.Services.Register(name, func(ctx context.Context, args registry.Args) (any, error) {
		return fn(ctx, plugin.ServiceArgs{Positional: args.Positional, Named: args.Named})
	}, version)
}

func (p *pluginRuntime) ServiceUnregister(name string) {
	p.rt.Services.Unregister(name)
}

func (p *pluginRuntime) ServiceCall(ctx context.Context, name string, args plugin.ServiceArgs) (any, error) {
	return p.rt.Services.Call(ctx, name, registry.Args{Positional: args.Positional, Named: args.Named})
}

func (p *pluginRuntime) HTTPRegister(method, path, service, description, version string) error {
	return p.rt.HTTP.Register(httpregistry.Endpoint{
		Method:      method,
		Path:        path,
		Service:     service,
		Description: description,
		Version:     version,
	})
}

func (p *pluginRuntime) StorageGet(ctx context.Context, namespace, key string) (map[string]any, bool, error) {
	return p.rt.Storage.Get(ctx, namespace, key)
}

func (p *pluginRuntime) StorageSet(ctx context.Context, namespace, key string, value map[string]any) error {
	return p.rt.Storage.Set(ctx, namespace, key, value)
}

func (p *pluginRuntime) StorageDelete(ctx context.Context, namespace, key string) error {
	return p.rt.Storage.Delete(ctx, namespace, key)
}
