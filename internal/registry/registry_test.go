package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/kernelerr"
)

func echoService(ctx context.Context, args Args) (any, error) {
	v, _ := args.Get("v")
	return v, nil
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := New(0)
	r.Register("svc.echo", echoService, "")
	assert.True(t, r.HasService("svc.echo"))

	r.Unregister("svc.echo")
	assert.False(t, r.HasService("svc.echo"))

	r.Register("svc.echo", echoService, "")
	assert.True(t, r.HasService("svc.echo"))
}

func TestCallUnknownService(t *testing.T) {
	r := New(0)
	_, err := r.Call(context.Background(), "nope", Args{})
	require.Error(t, err)
	ke, ok := kernelerr.As(err)
	require.True(t, ok)
	assert.Equal(t, kernelerr.UnknownService, ke.Code)
}

func TestCallPropagatesServiceError(t *testing.T) {
	r := New(0)
	boom := errors.New("boom")
	r.Register("svc.fail", func(ctx context.Context, args Args) (any, error) {
		return nil, boom
	}, "")

	_, err := r.Call(context.Background(), "svc.fail", Args{})
	assert.ErrorIs(t, err, boom)
}

func TestCallWithTimeoutExpires(t *testing.T) {
	r := New(0)
	r.Register("svc.slow", func(ctx context.Context, args Args) (any, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, "")

	_, err := r.CallWithTimeout(context.Background(), "svc.slow", 10*time.Millisecond, Args{})
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.Timeout))
}

func TestDefaultTimeoutAppliesToCall(t *testing.T) {
	r := New(5 * time.Millisecond)
	r.Register("svc.slow", func(ctx context.Context, args Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, "")

	_, err := r.Call(context.Background(), "svc.slow", Args{})
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.Timeout))
}

func TestVersioning(t *testing.T) {
	r := New(0)
	r.Register("svc.thing", echoService, "v1")
	r.Register("svc.thing", echoService, "v2")

	assert.True(t, r.HasService("svc.thing.v1"))
	assert.True(t, r.HasService("svc.thing.v2"))
	assert.False(t, r.HasService("svc.thing"))

	versions := r.GetVersions("svc.thing")
	assert.ElementsMatch(t, []string{"v1", "v2"}, versions)
}

func TestMarkDeprecatedDoesNotBlockCalls(t *testing.T) {
	r := New(0)
	r.Register("svc.old", echoService, "")
	r.MarkDeprecated("svc.old", "")

	assert.True(t, r.IsDeprecated("svc.old", ""))
	result, err := r.Call(context.Background(), "svc.old", Args{Named: map[string]any{"v": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestMiddlewareRunsAroundCall(t *testing.T) {
	r := New(0)
	var before, after, onError bool
	mw := Middleware{
		Before:  func(ctx context.Context, name string, args Args) { before = true },
		After:   func(ctx context.Context, name string, args Args, result any, err error) { after = true },
		OnError: func(ctx context.Context, name string, args Args, err error) { onError = true },
	}
	r.RegisterWithMiddleware("svc.mw", echoService, []Middleware{mw}, "")

	_, err := r.Call(context.Background(), "svc.mw", Args{})
	require.NoError(t, err)
	assert.True(t, before)
	assert.True(t, after)
	assert.False(t, onError)
}

func TestMiddlewareOnErrorHookFires(t *testing.T) {
	r := New(0)
	var onError bool
	mw := Middleware{OnError: func(ctx context.Context, name string, args Args, err error) { onError = true }}
	r.RegisterWithMiddleware("svc.mw", func(ctx context.Context, args Args) (any, error) {
		return nil, errors.New("fail")
	}, []Middleware{mw}, "")

	_, err := r.Call(context.Background(), "svc.mw", Args{})
	require.Error(t, err)
	assert.True(t, onError)
}

func TestClearRemovesAllServices(t *testing.T) {
	r := New(0)
	r.Register("a", echoService, "")
	r.Register("b", echoService, "")
	r.Clear()
	assert.Empty(t, r.ListServices())
}

func TestListServices(t *testing.T) {
	r := New(0)
	r.Register("a", echoService, "")
	r.Register("b", echoService, "")
	assert.ElementsMatch(t, []string{"a", "b"}, r.ListServices())
}
