package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decksmith/deck-api/internal/core/security"
)

// securityContext returns the security context the Authenticator attached to
// the request. Routes behind RequireAuth always have one; the check guards
// against a handler being mounted without it.
func securityContext(c echo.Context) (security.Context, error) {
	sc, ok := security.FromContext(c.Request().Context())
	if !ok {
		return security.Context{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return sc, nil
}

// bindAndValidate decodes the body into req and runs the validator. When ok
// is false the 400/422 response has already been written.
func bindAndValidate(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}
	return true, nil
}
