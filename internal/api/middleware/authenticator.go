package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/core/security"
	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

// PrincipalResolver re-reads the principal named by verified claims. A nil
// principal means the account is gone.
type PrincipalResolver interface {
	Resolve(ctx context.Context, claims domain.TokenClaims) (*domain.Principal, error)
}

// AuthenticatorConfig wires the Authenticator.
type AuthenticatorConfig struct {
	Codec ports.TokenCodec
	// Resolver is optional. Without it the principal is taken from the claims.
	Resolver PrincipalResolver
	Log      zerolog.Logger
}

// Authenticator resolves the bearer token into a security context on the
// request's context.Context. It never rejects a request: a missing or bad
// token leaves the request unauthenticated and RequireAuth/RequireRole decide.
func Authenticator(cfg AuthenticatorConfig) echo.MiddlewareFunc {
	log := cfg.Log.With().Str("component", "authenticator").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			claims, err := cfg.Codec.Parse(raw)
			if err != nil {
				metrics.TokenValidationTotal.WithLabelValues(tokenResult(err)).Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return next(c)
			}

			principal := claims.Principal()
			if cfg.Resolver != nil {
				p, err := cfg.Resolver.Resolve(c.Request().Context(), claims)
				if err != nil {
					metrics.TokenValidationTotal.WithLabelValues("error").Inc()
					log.Warn().Err(err).Str("username", claims.Subject).Msg("principal resolution failed")
					return next(c)
				}
				if p == nil {
					metrics.TokenValidationTotal.WithLabelValues("unknown_principal").Inc()
					log.Debug().Str("username", claims.Subject).Msg("token principal no longer exists")
					return next(c)
				}
				principal = *p
			}

			metrics.TokenValidationTotal.WithLabelValues("ok").Inc()
			ctx := security.WithContext(c.Request().Context(), security.Context{Principal: principal, Token: raw})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func tokenResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenMalformed), errors.Is(err, domain.ErrTokenInvalidArgument):
		return "malformed"
	case errors.Is(err, domain.ErrTokenUnsupported):
		return "unsupported"
	case errors.Is(err, domain.ErrTokenSignatureInvalid):
		return "signature"
	default:
		return "error"
	}
}
