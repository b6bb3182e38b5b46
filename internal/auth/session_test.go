package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.storage.Set(ctx, userNamespace, "user-1", map[string]interface{}{
		"is_admin": false,
		"scopes":   []string{"devices.read"},
	}))

	sessionID, err := b.CreateSession(ctx, "user-1", 0)
	require.NoError(t, err)

	rc, ok := b.ValidateSession(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, SourceSession, rc.Source)
	assert.Equal(t, "user-1", rc.UserID)
	assert.True(t, rc.Scopes["devices.read"])
}

func TestValidateSessionExpiredRejected(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.storage.Set(ctx, userNamespace, "user-1", map[string]interface{}{}))

	sessionID, err := b.CreateSession(ctx, "user-1", -time.Hour)
	require.NoError(t, err)

	_, ok := b.ValidateSession(ctx, sessionID)
	assert.False(t, ok)
}

func TestValidateSessionMissingUserDeletesSession(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	sessionID, err := b.CreateSession(ctx, "ghost-user", 0)
	require.NoError(t, err)

	_, ok := b.ValidateSession(ctx, sessionID)
	assert.False(t, ok)

	_, found, err := b.storage.Get(ctx, sessionNamespace, sessionID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestValidateSessionRevokedRejected(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.storage.Set(ctx, userNamespace, "user-1", map[string]interface{}{}))
	sessionID, err := b.CreateSession(ctx, "user-1", 0)
	require.NoError(t, err)

	require.NoError(t, b.Revoke(ctx, sessionID, KindSession))

	_, ok := b.ValidateSession(ctx, sessionID)
	assert.False(t, ok)
}

func TestValidateSessionUnknownRejected(t *testing.T) {
	b := newTestBoundary()
	_, ok := b.ValidateSession(context.Background(), "nope")
	assert.False(t, ok)
}
