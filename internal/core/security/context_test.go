package security

import (
	"context"
	"testing"

	"github.com/decksmith/deck-api/internal/core/domain"
)

func TestFromContext_Empty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no security context")
	}
	if _, err := PrincipalFrom(context.Background()); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestWithContext_ScopedToChild(t *testing.T) {
	parent := context.Background()
	sc := Context{
		Principal: domain.Principal{ID: "u1", Username: "alice", Roles: []domain.Role{domain.RoleUser}},
		Token:     "tok",
	}
	child := WithContext(parent, sc)

	got, ok := FromContext(child)
	if !ok {
		t.Fatalf("expected security context on child")
	}
	if got.Principal.Username != "alice" || got.Token != "tok" {
		t.Fatalf("unexpected context: %+v", got)
	}
	if _, ok := FromContext(parent); ok {
		t.Fatalf("parent context must stay unauthenticated")
	}
}

func TestContext_Roles(t *testing.T) {
	sc := Context{Principal: domain.Principal{Roles: []domain.Role{domain.RoleUser}}}
	if !sc.HasRole(domain.RoleUser) {
		t.Fatalf("expected USER role")
	}
	if sc.HasRole(domain.RoleAdmin) {
		t.Fatalf("unexpected ADMIN role")
	}
	if !sc.HasAnyRole(domain.RoleAdmin, domain.RoleUser) {
		t.Fatalf("expected HasAnyRole to match USER")
	}
	if sc.HasAnyRole() {
		t.Fatalf("empty role list must not match")
	}
}
