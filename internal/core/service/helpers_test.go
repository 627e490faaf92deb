package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/security"
	"github.com/decksmith/deck-api/internal/infrastructure/db/memory"
	"github.com/decksmith/deck-api/internal/infrastructure/password"
	"github.com/decksmith/deck-api/internal/infrastructure/token"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

const testSecret = "test-secret-please-ignore"

func newTestPool(t *testing.T) *async.Pool {
	t.Helper()
	pool := async.NewPool(async.Options{Workers: 4}, zerolog.Nop())
	t.Cleanup(pool.Close)
	return pool
}

type authFixture struct {
	users *memory.UserRepository
	codec *token.JWTCodec
	svc   *AuthService
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	pool := newTestPool(t)
	users := memory.NewUserRepository(pool)
	codec, err := token.NewJWTCodec(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}
	svc := NewAuthService(users, password.NewBcryptHasher(bcrypt.MinCost), codec, zerolog.Nop())
	return authFixture{users: users, codec: codec, svc: svc}
}

func asUser(id string, roles ...domain.Role) context.Context {
	if len(roles) == 0 {
		roles = domain.DefaultRoles()
	}
	return security.WithContext(context.Background(), security.Context{
		Principal: domain.Principal{ID: id, Username: id, Roles: roles},
		Token:     "token-" + id,
	})
}
