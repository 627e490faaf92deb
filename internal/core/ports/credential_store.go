package ports

import (
	"context"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

// UserFinder resolves active users by username.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) *async.Future[*domain.User]
}

// CredentialStore holds user records. The lookups below only consider active
// users, so a soft-deleted account neither authenticates nor blocks
// re-registration.
type CredentialStore interface {
	DocumentRepository[*domain.User]
	UserFinder
	ExistsByUsername(ctx context.Context, username string) *async.Future[bool]
	ExistsByEmail(ctx context.Context, email string) *async.Future[bool]
}

// PasswordHasher is a one-way hash with verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenCodec issues and parses signed session tokens.
type TokenCodec interface {
	// Issue stamps iat/exp on claims, signs them and returns the token with
	// the claims exactly as encoded.
	Issue(claims domain.TokenClaims) (string, domain.TokenClaims, error)
	Parse(token string) (domain.TokenClaims, error)
	Validate(token string) bool
}

// PrincipalCache holds recently resolved principals keyed by username.
type PrincipalCache interface {
	Get(ctx context.Context, username string) (domain.Principal, bool, error)
	Set(ctx context.Context, p domain.Principal) error
}
