package auth

import (
	"context"
	"time"

	"github.com/homecore/kernel/internal/kernelerr"
)

const refreshTokenNamespace = "auth_refresh_tokens"

// IssueRefreshToken mints an opaque random refresh token for userID and
// persists it with RefreshTokenTTL (or ttl, if non-zero).
func (b *Boundary) IssueRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = RefreshTokenTTL
	}
	token, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	record := map[string]interface{}{
		"user_id":    userID,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	}
	if err := b.storage.Set(ctx, refreshTokenNamespace, token, record); err != nil {
		return "", err
	}
	return token, nil
}

// RefreshResult carries the outcome of a successful refresh.
type RefreshResult struct {
	AccessToken     string
	RefreshToken    string
	RotatedRefresh  bool
}

// Refresh implements the spec §4.9 refresh flow: validate the refresh
// token, look up the user, issue a new access token, and optionally rotate
// the refresh token (revoke old, issue new) when rotate is true. Revocation
// is checked both before and after the user lookup to close the window
// where a concurrent revocation lands mid-refresh.
func (b *Boundary) Refresh(ctx context.Context, refreshToken string, rotate bool) (*RefreshResult, error) {
	if b.IsRevoked(ctx, refreshToken, KindJWT) {
		return nil, kernelerr.NewUnauthenticated("refresh token revoked")
	}

	record, found, err := b.storage.Get(ctx, refreshTokenNamespace, refreshToken)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, kernelerr.NewUnauthenticated("refresh token not recognized")
	}
	if expiresAtStr, ok := record["expires_at"].(string); ok {
		expiresAt, parseErr := time.Parse(time.RFC3339, expiresAtStr)
		if parseErr == nil && time.Now().After(expiresAt) {
			_ = b.storage.Delete(ctx, refreshTokenNamespace, refreshToken)
			return nil, kernelerr.NewUnauthenticated("refresh token expired")
		}
	}

	if b.IsRevoked(ctx, refreshToken, KindJWT) {
		return nil, kernelerr.NewUnauthenticated("refresh token revoked")
	}

	userID, _ := record["user_id"].(string)
	user, userFound, err := b.storage.Get(ctx, userNamespace, userID)
	if err != nil {
		return nil, err
	}
	if !userFound {
		return nil, kernelerr.NewNotFound("user", userID)
	}

	isAdmin, _ := user["is_admin"].(bool)
	scopeSet := scopesFromRecord(user["scopes"])
	scopes := make([]string, 0, len(scopeSet))
	for s := range scopeSet {
		scopes = append(scopes, s)
	}

	accessToken, err := b.jwt.IssueAccessToken(ctx, userID, scopes, isAdmin)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{AccessToken: accessToken, RefreshToken: refreshToken}
	if rotate {
		newToken, err := b.IssueRefreshToken(ctx, userID, 0)
		if err != nil {
			return nil, err
		}
		_ = b.storage.Delete(ctx, refreshTokenNamespace, refreshToken)
		result.RefreshToken = newToken
		result.RotatedRefresh = true
	}

	b.audit(ctx, "token_refreshed", userID, true, nil)
	return result, nil
}
