// Package auth is the built-in module binding internal/auth's Boundary to
// the kernel's service/HTTP surface, exposing login, refresh, logout, and
// password-change as ordinary ServiceRegistry calls the gateway
// materializes into /admin/auth/* routes — the same contract any plugin's
// services get, per spec §4.13.
package auth

import (
	"context"
	"net/http"

	"github.com/homecore/kernel/internal/httpregistry"
	internalauth "github.com/homecore/kernel/internal/auth"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/registry"
)

// Module binds a *internalauth.Boundary into ServiceRegistry and HttpRegistry.
type Module struct {
	boundary *internalauth.Boundary
	services *registry.Registry
	http     *httpregistry.Registry
	log      *logging.Logger
}

// New constructs the auth module.
func New(boundary *internalauth.Boundary, services *registry.Registry, httpReg *httpregistry.Registry, log *logging.Logger) *Module {
	return &Module{boundary: boundary, services: services, http: httpReg, log: log}
}

func (m *Module) Name() string { return "auth" }

func (m *Module) Start(ctx context.Context) error {
	m.services.Register("auth.login", m.login, "")
	m.services.Register("auth.logout", m.logout, "")
	m.services.Register("auth.refresh", m.refresh, "")
	m.services.Register("auth.change_password", m.changePassword, "")

	endpoints := []httpregistry.Endpoint{
		{Method: http.MethodPost, Path: "/admin/auth/login", Service: "auth.login", Description: "exchange a password for a session"},
		{Method: http.MethodPost, Path: "/admin/auth/logout", Service: "auth.logout", Description: "revoke the caller's session"},
		{Method: http.MethodPost, Path: "/admin/auth/refresh", Service: "auth.refresh", Description: "exchange a refresh token for a new access token"},
		{Method: http.MethodPost, Path: "/admin/auth/change_password", Service: "auth.change_password", Description: "change the caller's password"},
	}
	for _, ep := range endpoints {
		if err := m.http.Register(ep); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	for _, name := range []string{"auth.login", "auth.logout", "auth.refresh", "auth.change_password"} {
		m.services.Unregister(name)
	}
	m.http.Clear("auth")
	return nil
}

func stringArg(args registry.Args, name string) (string, error) {
	v, ok := args.Get(name)
	if !ok {
		return "", kernelerr.NewInvalidInput(name, "is required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", kernelerr.NewInvalidInput(name, "must be a non-empty string")
	}
	return s, nil
}

func (m *Module) login(ctx context.Context, args registry.Args) (any, error) {
	userID, err := stringArg(args, "user_id")
	if err != nil {
		return nil, err
	}
	password, err := stringArg(args, "password")
	if err != nil {
		return nil, err
	}
	sessionID, err := m.boundary.Login(ctx, userID, password)
	if err != nil {
		return nil, err
	}
	return map[string]any{"session_id": sessionID}, nil
}

func (m *Module) logout(ctx context.Context, args registry.Args) (any, error) {
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return nil, err
	}
	if err := m.boundary.Logout(ctx, sessionID); err != nil {
		return nil, err
	}
	return map[string]any{"revoked": true}, nil
}

func (m *Module) refresh(ctx context.Context, args registry.Args) (any, error) {
	refreshToken, err := stringArg(args, "refresh_token")
	if err != nil {
		return nil, err
	}
	rotate, _ := args.Get("rotate")
	rotateBool, _ := rotate.(bool)
	result, err := m.boundary.Refresh(ctx, refreshToken, rotateBool)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Module) changePassword(ctx context.Context, args registry.Args) (any, error) {
	userID, err := stringArg(args, "user_id")
	if err != nil {
		return nil, err
	}
	oldPassword, err := stringArg(args, "old_password")
	if err != nil {
		return nil, err
	}
	newPassword, err := stringArg(args, "new_password")
	if err != nil {
		return nil, err
	}
	if err := m.boundary.ChangePassword(ctx, userID, oldPassword, newPassword); err != nil {
		return nil, err
	}
	return map[string]any{"changed": true}, nil
}
