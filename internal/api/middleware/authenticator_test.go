package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/security"
	"github.com/decksmith/deck-api/internal/infrastructure/token"
)

type stubResolver struct {
	principal *domain.Principal
	err       error
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, _ domain.TokenClaims) (*domain.Principal, error) {
	s.calls++
	return s.principal, s.err
}

func newCodec(t *testing.T) *token.JWTCodec {
	t.Helper()
	codec, err := token.NewJWTCodec("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}
	return codec
}

func issue(t *testing.T, codec *token.JWTCodec) string {
	t.Helper()
	raw, _, err := codec.Issue(domain.TokenClaims{
		Subject: "alice",
		ID:      "u1",
		Email:   "alice@example.com",
		Roles:   []domain.Role{domain.RoleUser},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return raw
}

// run passes a request with the given Authorization header through the
// Authenticator and returns the security context seen by the next handler.
func run(t *testing.T, cfg AuthenticatorConfig, header string) (security.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		sc     security.Context
		ok     bool
		called bool
	)
	handler := Authenticator(cfg)(func(c echo.Context) error {
		called = true
		sc, ok = security.FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return sc, ok
}

func TestAuthenticator_ValidToken(t *testing.T) {
	codec := newCodec(t)
	raw := issue(t, codec)

	sc, ok := run(t, AuthenticatorConfig{Codec: codec, Log: zerolog.Nop()}, "Bearer "+raw)
	if !ok {
		t.Fatalf("expected security context")
	}
	if sc.Principal.Username != "alice" || sc.Principal.ID != "u1" {
		t.Fatalf("unexpected principal: %+v", sc.Principal)
	}
	if sc.Token != raw {
		t.Fatalf("expected raw token on the context")
	}
	if !sc.HasRole(domain.RoleUser) {
		t.Fatalf("expected USER role")
	}
}

func TestAuthenticator_FailsOpen(t *testing.T) {
	codec := newCodec(t)
	expired, _, err := codec.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(domain.TokenClaims{Subject: "alice"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other, err := token.NewJWTCodec("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc",
		"empty bearer":   "Bearer ",
		"garbage":        "Bearer not.a.jwt",
		"expired":        "Bearer " + expired,
		"wrong secret":   "Bearer " + issue(t, other),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := run(t, AuthenticatorConfig{Codec: codec, Log: zerolog.Nop()}, header); ok {
				t.Fatalf("expected unauthenticated request")
			}
		})
	}
}

func TestAuthenticator_ResolvesPrincipal(t *testing.T) {
	codec := newCodec(t)
	resolver := &stubResolver{principal: &domain.Principal{
		ID: "u1", Username: "alice", Roles: []domain.Role{domain.RoleUser, domain.RoleAdmin},
	}}

	sc, ok := run(t, AuthenticatorConfig{Codec: codec, Resolver: resolver, Log: zerolog.Nop()}, "Bearer "+issue(t, codec))
	if !ok {
		t.Fatalf("expected security context")
	}
	if !sc.HasRole(domain.RoleAdmin) {
		t.Fatalf("expected roles from the resolver, got %v", sc.Principal.Roles)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolve, got %d", resolver.calls)
	}
}

func TestAuthenticator_UnknownPrincipal(t *testing.T) {
	codec := newCodec(t)

	for name, resolver := range map[string]*stubResolver{
		"deleted user": {},
		"store error":  {err: errors.New("down")},
	} {
		t.Run(name, func(t *testing.T) {
			if _, ok := run(t, AuthenticatorConfig{Codec: codec, Resolver: resolver, Log: zerolog.Nop()}, "Bearer "+issue(t, codec)); ok {
				t.Fatalf("expected unauthenticated request")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if got != tc.token || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.token, tc.ok)
		}
	}
}
