package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/httpregistry"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/registry"
)

func TestMaterializeRoutesDispatchesToService(t *testing.T) {
	httpReg := httpregistry.New()
	svcReg := registry.New(time.Second)
	svcReg.Register("devices.list", func(ctx context.Context, args registry.Args) (any, error) {
		return map[string]string{"status": "ok"}, nil
	}, "")
	g := New(mux.NewRouter(), httpReg, svcReg, logging.NewFromEnv("test"))
	require.NoError(t, httpReg.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/devices", Service: "devices.list"}))

	g.MaterializeRoutes()

	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandlerForUnknownServiceReturns404(t *testing.T) {
	httpReg := httpregistry.New()
	svcReg := registry.New(time.Second)
	g := New(mux.NewRouter(), httpReg, svcReg, logging.NewFromEnv("test"))
	require.NoError(t, httpReg.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/devices", Service: "devices.list"}))
	g.MaterializeRoutes()

	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerForCollectsPathQueryAndBodyArgs(t *testing.T) {
	httpReg := httpregistry.New()
	svcReg := registry.New(time.Second)
	var gotArgs registry.Args
	svcReg.Register("devices.update", func(ctx context.Context, args registry.Args) (any, error) {
		gotArgs = args
		return "ok", nil
	}, "")
	g := New(mux.NewRouter(), httpReg, svcReg, logging.NewFromEnv("test"))
	require.NoError(t, httpReg.Register(httpregistry.Endpoint{Method: http.MethodPut, Path: "/devices/{id}", Service: "devices.update"}))
	g.MaterializeRoutes()

	r := httptest.NewRequest(http.MethodPut, "/devices/lamp-1?verbose=true", strings.NewReader(`{"on":true}`))
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lamp-1", gotArgs.Named["id"])
	assert.Equal(t, "true", gotArgs.Named["verbose"])
	body, _ := gotArgs.Named["body"].(map[string]interface{})
	require.NotNil(t, body)
	assert.Equal(t, true, body["on"])
}

func TestWriteServiceErrorMapsKernelErrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", kernelerr.NewInvalidInput("field", "bad"), http.StatusBadRequest},
		{"timeout", kernelerr.NewTimeout("slow-op"), http.StatusGatewayTimeout},
		{"unauthorized", kernelerr.NewUnauthorized("no"), http.StatusForbidden},
		{"unauthenticated", kernelerr.NewUnauthenticated("who"), http.StatusForbidden},
		{"not found", kernelerr.NewNotFound("resource", "missing"), http.StatusNotFound},
		{"plain error", plainError{}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			writeServiceError(w, r, tc.err)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

type plainError struct{}

func (plainError) Error() string { return "boom" }
