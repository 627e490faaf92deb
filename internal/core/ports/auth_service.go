package ports

import (
	"context"

	"github.com/decksmith/deck-api/internal/core/domain"
)

// AuthService is the sign-in/sign-up surface consumed by the HTTP handlers.
type AuthService interface {
	SignUp(ctx context.Context, username, email, password string) (*domain.User, error)
	// SignIn returns ctx extended with the security context of the new
	// principal.
	SignIn(ctx context.Context, username, password string) (context.Context, *domain.Authentication, error)
}

// DeckService is the deck and card surface consumed by the HTTP handlers.
type DeckService interface {
	CreateDeck(ctx context.Context, name, description string) (*domain.Deck, error)
	GetDeck(ctx context.Context, id string) (*domain.Deck, error)
	DeleteDeck(ctx context.Context, id string) error
	RestoreDeck(ctx context.Context, id string) (*domain.Deck, error)
	PurgeDeck(ctx context.Context, id string) error
	AddCard(ctx context.Context, deckID, front, back string) (*domain.Card, error)
	ImportCards(ctx context.Context, deckID string, cards []CardInput) ([]*domain.Card, error)
	MoveCard(ctx context.Context, cardID, targetDeckID string) (*domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
}

// CardInput is one card of an import batch.
type CardInput struct {
	Front string
	Back  string
}
