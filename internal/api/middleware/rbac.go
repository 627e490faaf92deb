package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/security"
)

type errorBody struct {
	Error string `json:"error"`
}

// RequireAuth rejects requests the Authenticator left unauthenticated.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := security.FromContext(c.Request().Context()); !ok {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "authentication required"})
			}
			return next(c)
		}
	}
}

// RequireRole enforces role-based access control: the principal needs at
// least one of roles. Unauthenticated requests get 401.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sc, ok := security.FromContext(c.Request().Context())
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "authentication required"})
			}
			if !sc.HasAnyRole(roles...) {
				return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden"})
			}
			return next(c)
		}
	}
}
