package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/kernelerr"
)

func TestHashPasswordNeverEqualsPlaintext(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Sup3rSecret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	h2, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestValidatePasswordPolicy(t *testing.T) {
	assert.NoError(t, ValidatePasswordPolicy("Abcdefg1"))
	assert.Error(t, ValidatePasswordPolicy("short1A"))
	assert.Error(t, ValidatePasswordPolicy("alllowercase1"))
	assert.Error(t, ValidatePasswordPolicy("ALLUPPERCASE1"))
	assert.Error(t, ValidatePasswordPolicy("NoDigitsHere"))
}

func TestSetPasswordStoresHash(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()

	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	user, found, err := b.storage.Get(ctx, userNamespace, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	hash, _ := user["password_hash"].(string)
	assert.True(t, VerifyPassword(hash, "Abcdefg1"))
}

func TestSetPasswordRejectsWeakPassword(t *testing.T) {
	b := newTestBoundary()
	err := b.SetPassword(context.Background(), "user-1", "weak")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.InvalidInput))
}

func TestChangePasswordRequiresCurrentMatch(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	err := b.ChangePassword(ctx, "user-1", "WrongOld1", "NewPass2")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.Unauthenticated))
}

func TestChangePasswordRejectsSameAsOld(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	err := b.ChangePassword(ctx, "user-1", "Abcdefg1", "Abcdefg1")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.InvalidInput))
}

func TestLoginSucceedsAndIssuesSession(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	sessionID, err := b.Login(ctx, "user-1", "Abcdefg1")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	rc, ok := b.ValidateSession(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, "user-1", rc.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	_, err := b.Login(ctx, "user-1", "WrongPass1")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.Unauthenticated))
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	b := newTestBoundary()
	_, err := b.Login(context.Background(), "ghost", "Abcdefg1")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.Unauthenticated))
}

func TestLogoutRevokesSession(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))
	sessionID, err := b.Login(ctx, "user-1", "Abcdefg1")
	require.NoError(t, err)

	require.NoError(t, b.Logout(ctx, sessionID))

	_, ok := b.ValidateSession(ctx, sessionID)
	assert.False(t, ok)
}

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	b := newTestBoundary()
	ctx := context.Background()
	require.NoError(t, b.SetPassword(ctx, "user-1", "Abcdefg1"))

	sessionID, err := b.CreateSession(ctx, "user-1", 0)
	require.NoError(t, err)

	require.NoError(t, b.ChangePassword(ctx, "user-1", "Abcdefg1", "Newpass2"))

	assert.True(t, b.IsRevoked(ctx, sessionID, KindSession))
}
