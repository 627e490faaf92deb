package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

// PrincipalResolver re-reads the principal named by a token from the
// credential store, so that roles and deletions take effect before the
// token expires. Concurrent lookups of the same user share one store call.
type PrincipalResolver struct {
	users ports.UserFinder
	cache ports.PrincipalCache
	group singleflight.Group
	log   zerolog.Logger
}

// NewPrincipalResolver builds a resolver. cache may be nil.
func NewPrincipalResolver(users ports.UserFinder, cache ports.PrincipalCache, log zerolog.Logger) *PrincipalResolver {
	return &PrincipalResolver{
		users: users,
		cache: cache,
		log:   log.With().Str("component", "principal_resolver").Logger(),
	}
}

// Resolve returns the current principal for claims, or nil when the user no
// longer exists, was deleted, or was replaced by a new account with the same
// username.
func (r *PrincipalResolver) Resolve(ctx context.Context, claims domain.TokenClaims) (*domain.Principal, error) {
	if r.cache != nil {
		p, ok, err := r.cache.Get(ctx, claims.Subject)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Str("username", claims.Subject).Msg("principal cache read failed")
		case ok:
			metrics.PrincipalCacheTotal.WithLabelValues("hit").Inc()
			return matching(&p, claims), nil
		default:
			metrics.PrincipalCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	ch := r.group.DoChan(claims.Subject, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), claims.Subject)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p, _ := res.Val.(*domain.Principal)
		return matching(p, claims), nil
	}
}

func (r *PrincipalResolver) load(ctx context.Context, username string) (*domain.Principal, error) {
	u, err := r.users.FindByUsername(ctx, username).Await(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	p := u.Principal()
	if r.cache != nil {
		if err := r.cache.Set(ctx, p); err != nil {
			r.log.Warn().Err(err).Str("username", username).Msg("principal cache write failed")
		}
	}
	return &p, nil
}

// matching returns a copy of p when it is the account the token was issued to.
func matching(p *domain.Principal, claims domain.TokenClaims) *domain.Principal {
	if p == nil || (claims.ID != "" && p.ID != claims.ID) {
		return nil
	}
	cp := *p
	cp.Roles = append([]domain.Role(nil), p.Roles...)
	return &cp
}
