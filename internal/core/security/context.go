// Package security carries the authenticated principal of one request on its
// context.Context. There is no process-wide holder: each request owns its own
// value and it disappears with the request.
package security

import (
	"context"

	"github.com/decksmith/deck-api/internal/core/domain"
)

type contextKey struct{ name string }

var securityCtxKey = &contextKey{"security"}

// Context is the authenticated state of a single request.
type Context struct {
	Principal domain.Principal
	// Token is the raw credential the principal was established with.
	Token string
}

// HasRole reports whether the principal holds role.
func (c Context) HasRole(role domain.Role) bool {
	return c.Principal.HasRole(role)
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (c Context) HasAnyRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if c.Principal.HasRole(r) {
			return true
		}
	}
	return false
}

// WithContext returns a child of ctx carrying sc.
func WithContext(ctx context.Context, sc Context) context.Context {
	return context.WithValue(ctx, securityCtxKey, sc)
}

// FromAuthentication builds the security context of a fresh sign-in.
func FromAuthentication(auth *domain.Authentication) Context {
	return Context{Principal: auth.Principal, Token: auth.Token}
}

// FromContext returns the security context of the request, if authenticated.
func FromContext(ctx context.Context) (Context, bool) {
	sc, ok := ctx.Value(securityCtxKey).(Context)
	return sc, ok
}

// PrincipalFrom returns the principal or domain.ErrForbidden for
// unauthenticated callers.
func PrincipalFrom(ctx context.Context) (domain.Principal, error) {
	sc, ok := FromContext(ctx)
	if !ok {
		return domain.Principal{}, domain.ErrForbidden
	}
	return sc.Principal, nil
}
