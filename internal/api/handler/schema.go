package handler

import (
	"time"

	"github.com/decksmith/deck-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Roles     []domain.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
}

type signInResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      domain.Principal `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}

// --- Decks ---

type createDeckRequest struct {
	Name        string `json:"name"        validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type cardRequest struct {
	Front string `json:"front" validate:"required,max=1000"`
	Back  string `json:"back"  validate:"required,max=1000"`
}

type importCardsRequest struct {
	Cards []cardRequest `json:"cards" validate:"required,min=1,max=500,dive"`
}

type moveCardRequest struct {
	DeckID string `json:"deck_id" validate:"required"`
}

type importFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type importCardsResponse struct {
	Cards    []*domain.Card  `json:"cards"`
	Failures []importFailure `json:"failures,omitempty"`
}
