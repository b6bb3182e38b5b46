package auth

import (
	"context"

	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/storage"
)

// Boundary wires every auth concern — JWT, API keys, sessions, rate limits,
// revocation, audit, and passwords — against one storage.Facade. CoreRuntime
// holds one Boundary; requests reach it through the HTTP middleware in
// middleware.go, and the built-in auth module (modules/auth) calls it for
// login, logout, refresh, and password changes.
type Boundary struct {
	storage *storage.Facade
	log     *logging.Logger

	jwt            *JWTIssuer
	inMemory       *rateLimiter
	apiKeyLastUsed *apiKeyLastUsedTracker
}

// New constructs a Boundary backed by storageFacade.
func New(storageFacade *storage.Facade, log *logging.Logger) *Boundary {
	return &Boundary{
		storage:        storageFacade,
		log:            log,
		jwt:            NewJWTIssuer(storageFacade),
		inMemory:       newInMemoryLimiter(),
		apiKeyLastUsed: newAPIKeyLastUsedTracker(),
	}
}

// IssueAccessToken exposes the JWT issuer's access-token minting for the
// login/registration flow, which lives in a module, not in this package.
func (b *Boundary) IssueAccessToken(ctx context.Context, userID string, scopes []string, isAdmin bool) (string, error) {
	return b.jwt.IssueAccessToken(ctx, userID, scopes, isAdmin)
}
