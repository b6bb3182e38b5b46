package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, b *Boundary, userID string, scopes []string, isAdmin bool) {
	t.Helper()
	require.NoError(t, b.storage.Set(context.Background(), userNamespace, userID, map[string]interface{}{
		"scopes":   scopes,
		"is_admin": isAdmin,
	}))
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	seedUser(t, b, "user-1", []string{"devices.read"}, false)

	token, err := b.IssueRefreshToken(ctx, "user-1", 0)
	require.NoError(t, err)

	result, err := b.Refresh(ctx, token, false)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, token, result.RefreshToken)
	assert.False(t, result.RotatedRefresh)

	rc, ok := b.jwt.ValidateJWT(ctx, result.AccessToken)
	require.True(t, ok)
	assert.Equal(t, "user-1", rc.UserID)
}

func TestRefreshRotatesTokenWhenRequested(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	seedUser(t, b, "user-1", nil, false)

	token, err := b.IssueRefreshToken(ctx, "user-1", 0)
	require.NoError(t, err)

	result, err := b.Refresh(ctx, token, true)
	require.NoError(t, err)
	assert.True(t, result.RotatedRefresh)
	assert.NotEqual(t, token, result.RefreshToken)

	assert.True(t, b.IsRevoked(ctx, token, KindJWT) || !refreshTokenExists(t, b, token))
}

func refreshTokenExists(t *testing.T, b *Boundary, token string) bool {
	t.Helper()
	_, found, err := b.storage.Get(context.Background(), refreshTokenNamespace, token)
	require.NoError(t, err)
	return found
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	seedUser(t, b, "user-1", nil, false)

	token, err := b.IssueRefreshToken(ctx, "user-1", -time.Hour)
	require.NoError(t, err)

	_, err = b.Refresh(ctx, token, false)
	require.Error(t, err)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	b := newTestBoundary()
	_, err := b.Refresh(context.Background(), "unknown-token", false)
	require.Error(t, err)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	seedUser(t, b, "user-1", nil, false)

	token, err := b.IssueRefreshToken(ctx, "user-1", 0)
	require.NoError(t, err)
	require.NoError(t, b.Revoke(ctx, token, KindJWT))

	_, err = b.Refresh(ctx, token, false)
	require.Error(t, err)
}
