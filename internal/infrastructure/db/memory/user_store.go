package memory

import (
	"context"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

// UserRepository is the in-memory credential store.
type UserRepository struct {
	*DocumentStore[*domain.User]
}

var _ ports.CredentialStore = (*UserRepository)(nil)

// NewUserRepository enforces unique usernames and emails among active users.
func NewUserRepository(pool *async.Pool) *UserRepository {
	return &UserRepository{
		DocumentStore: NewDocumentStore("users", pool, func() *domain.User { return &domain.User{} },
			UniqueIndex[*domain.User]{Name: "username", Key: func(u *domain.User) string { return u.Username }},
			UniqueIndex[*domain.User]{Name: "email", Key: func(u *domain.User) string { return u.Email }},
		),
	}
}

// NewDeckRepository returns an in-memory deck store.
func NewDeckRepository(pool *async.Pool) *DocumentStore[*domain.Deck] {
	return NewDocumentStore("decks", pool, func() *domain.Deck { return &domain.Deck{} })
}

// NewCardRepository returns an in-memory card store.
func NewCardRepository(pool *async.Pool) *DocumentStore[*domain.Card] {
	return NewDocumentStore("cards", pool, func() *domain.Card { return &domain.Card{} })
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) *async.Future[*domain.User] {
	return r.FindOne(ctx, domain.StatusActive, func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) *async.Future[bool] {
	return async.Then(r.FindByUsername(ctx, username), func(u *domain.User) (bool, error) {
		return u != nil, nil
	})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) *async.Future[bool] {
	found := r.FindOne(ctx, domain.StatusActive, func(u *domain.User) bool { return u.Email == email })
	return async.Then(found, func(u *domain.User) (bool, error) {
		return u != nil, nil
	})
}
