package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/homecore/kernel/internal/storage"
)

const (
	jwtConfigNamespace = "auth_config"
	jwtSecretKey       = "jwt_secret_key"

	// AccessTokenTTL is the lifetime of a freshly issued access token.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the default lifetime of a refresh token.
	RefreshTokenTTL = 7 * 24 * time.Hour

	accessTokenType = "access"
)

// accessClaims is the HS256 payload for access tokens: user_id, scopes,
// is_admin, plus the registered exp/iat claims jwt/v5 enforces.
type accessClaims struct {
	UserID  string   `json:"user_id"`
	Scopes  []string `json:"scopes"`
	IsAdmin bool     `json:"is_admin"`
	Type    string   `json:"type"`
	jwt.RegisteredClaims
}

// JWTIssuer validates and issues HS256 access tokens. The signing secret is
// generated on first need (32 random bytes, URL-safe base64) and persisted
// in storage under auth_config/jwt_secret_key; an in-memory cache resists
// the race of two goroutines generating two different secrets concurrently.
type JWTIssuer struct {
	storage *storage.Facade

	mu     sync.Mutex
	secret []byte
}

// NewJWTIssuer constructs a JWTIssuer backed by storageFacade.
func NewJWTIssuer(storageFacade *storage.Facade) *JWTIssuer {
	return &JWTIssuer{storage: storageFacade}
}

func (j *JWTIssuer) loadSecret(ctx context.Context) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.secret != nil {
		return j.secret, nil
	}

	record, found, err := j.storage.Get(ctx, jwtConfigNamespace, jwtSecretKey)
	if err != nil {
		return nil, err
	}
	if found {
		if encoded, ok := record["value"].(string); ok {
			decoded, decodeErr := base64.RawURLEncoding.DecodeString(encoded)
			if decodeErr == nil && len(decoded) >= 32 {
				j.secret = decoded
				return j.secret, nil
			}
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	if err := j.storage.Set(ctx, jwtConfigNamespace, jwtSecretKey, map[string]interface{}{"value": encoded}); err != nil {
		return nil, err
	}
	j.secret = raw
	return j.secret, nil
}

// IssueAccessToken mints an HS256 access token carrying userID, scopes, and
// isAdmin, expiring after AccessTokenTTL.
func (j *JWTIssuer) IssueAccessToken(ctx context.Context, userID string, scopes []string, isAdmin bool) (string, error) {
	secret, err := j.loadSecret(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &accessClaims{
		UserID:  userID,
		Scopes:  scopes,
		IsAdmin: isAdmin,
		Type:    accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateJWT decodes and verifies token. Any decoding or signature failure,
// expiry, or a type other than "access" returns (nil, false) — never an
// error — so the caller has no side channel distinguishing failure modes.
func (j *JWTIssuer) ValidateJWT(ctx context.Context, token string) (*RequestContext, bool) {
	secret, err := j.loadSecret(ctx)
	if err != nil {
		return nil, false
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Type != accessTokenType {
		return nil, false
	}

	scopeSet := make(map[string]bool, len(claims.Scopes))
	for _, s := range claims.Scopes {
		scopeSet[s] = true
	}
	return &RequestContext{
		Source:  SourceJWT,
		Subject: claims.UserID,
		UserID:  claims.UserID,
		Scopes:  scopeSet,
		IsAdmin: claims.IsAdmin,
	}, true
}

// looksLikeJWT reports whether token splits into exactly three non-empty
// dot-separated segments, the credential-acquisition test for "try JWT
// first" per spec §4.9.
func looksLikeJWT(token string) bool {
	dots := 0
	segStart := 0
	for i, c := range token {
		if c == '.' {
			if i == segStart {
				return false
			}
			dots++
			segStart = i + 1
		}
	}
	return dots == 2 && segStart < len(token)
}
