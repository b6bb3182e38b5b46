package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/storage"
	"github.com/homecore/kernel/internal/storage/memory"
)

func newTestIssuer() *JWTIssuer {
	return NewJWTIssuer(storage.NewFacade(memory.New()))
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	j := newTestIssuer()
	ctx := context.Background()

	token, err := j.IssueAccessToken(ctx, "user-1", []string{"devices.read"}, false)
	require.NoError(t, err)

	rc, ok := j.ValidateJWT(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "user-1", rc.UserID)
	assert.Equal(t, SourceJWT, rc.Source)
	assert.True(t, rc.Scopes["devices.read"])
	assert.False(t, rc.IsAdmin)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	j := newTestIssuer()
	ctx := context.Background()
	secret, err := j.loadSecret(ctx)
	require.NoError(t, err)

	claims := &accessClaims{
		UserID: "user-1",
		Type:   accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, ok := j.ValidateJWT(ctx, signed)
	assert.False(t, ok)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	j := newTestIssuer()
	ctx := context.Background()

	otherSecret := []byte("01234567890123456789012345678901")
	claims := &accessClaims{
		UserID: "user-1",
		Type:   accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(otherSecret)
	require.NoError(t, err)

	_, ok := j.ValidateJWT(ctx, signed)
	assert.False(t, ok)
}

func TestValidateJWTRejectsNonAccessType(t *testing.T) {
	j := newTestIssuer()
	ctx := context.Background()
	secret, err := j.loadSecret(ctx)
	require.NoError(t, err)

	claims := &accessClaims{
		UserID: "user-1",
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, ok := j.ValidateJWT(ctx, signed)
	assert.False(t, ok)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	j := newTestIssuer()
	_, ok := j.ValidateJWT(context.Background(), "not.a.jwt")
	assert.False(t, ok)
}

func TestSecretPersistsAcrossIssuerInstances(t *testing.T) {
	facade := storage.NewFacade(memory.New())
	j1 := NewJWTIssuer(facade)
	ctx := context.Background()

	token, err := j1.IssueAccessToken(ctx, "user-1", nil, false)
	require.NoError(t, err)

	j2 := NewJWTIssuer(facade)
	rc, ok := j2.ValidateJWT(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "user-1", rc.UserID)
}

func TestLooksLikeJWTDisambiguation(t *testing.T) {
	assert.True(t, looksLikeJWT("aaa.bbb.ccc"))
	assert.False(t, looksLikeJWT("plain_opaque_key"))
	assert.False(t, looksLikeJWT("a..c"))
	assert.False(t, looksLikeJWT("a.b.c.d"))
	assert.False(t, looksLikeJWT(""))
}
