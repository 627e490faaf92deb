package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
)

// stubDeckService implements ports.DeckService; only the funcs a test sets
// may be called.
type stubDeckService struct {
	ports.DeckService
	createFn func(ctx context.Context, name, description string) (*domain.Deck, error)
	importFn func(ctx context.Context, deckID string, cards []ports.CardInput) ([]*domain.Card, error)
	moveFn   func(ctx context.Context, cardID, deckID string) (*domain.Card, error)
}

func (s *stubDeckService) CreateDeck(ctx context.Context, name, description string) (*domain.Deck, error) {
	return s.createFn(ctx, name, description)
}

func (s *stubDeckService) ImportCards(ctx context.Context, deckID string, cards []ports.CardInput) ([]*domain.Card, error) {
	return s.importFn(ctx, deckID, cards)
}

func (s *stubDeckService) MoveCard(ctx context.Context, cardID, deckID string) (*domain.Card, error) {
	return s.moveFn(ctx, cardID, deckID)
}

func TestDeckHandler_Create(t *testing.T) {
	e := newEcho()
	stub := &stubDeckService{
		createFn: func(ctx context.Context, name, description string) (*domain.Deck, error) {
			d := &domain.Deck{Name: name, Description: description, OwnerID: "u1"}
			d.ID = "d1"
			return d, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/decks", `{"name":"Verbs","description":"irregular"}`), rec)

	if err := NewDeckHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got domain.Deck
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != "d1" || got.Name != "Verbs" {
		t.Fatalf("unexpected deck: %+v", got)
	}
}

func TestDeckHandler_Create_Validation(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/decks", `{"description":"no name"}`), rec)

	if err := NewDeckHandler(&stubDeckService{}).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestDeckHandler_ImportCards_PartialFailure(t *testing.T) {
	e := newEcho()
	stub := &stubDeckService{
		importFn: func(ctx context.Context, deckID string, in []ports.CardInput) ([]*domain.Card, error) {
			if deckID != "d1" || len(in) != 3 {
				t.Fatalf("unexpected args: %s %d", deckID, len(in))
			}
			cards := make([]*domain.Card, len(in))
			for i, c := range in {
				cards[i] = &domain.Card{DeckID: deckID, Front: c.Front, Back: c.Back}
				cards[i].ID = fmt.Sprintf("c%d", i)
			}
			return cards, &domain.BatchInsertError{Failures: []domain.InsertFailure{
				{Index: 1, Err: domain.ErrDuplicateKey},
			}}
		},
	}
	body := `{"cards":[{"front":"a","back":"1"},{"front":"b","back":"2"},{"front":"c","back":"3"}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/decks/d1/cards/import", body), rec)
	c.SetParamNames("id")
	c.SetParamValues("d1")

	if err := NewDeckHandler(stub).ImportCards(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", rec.Code)
	}
	var resp importCardsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Cards) != 2 || resp.Cards[0].ID != "c0" || resp.Cards[1].ID != "c2" {
		t.Fatalf("unexpected stored cards: %+v", resp.Cards)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].Index != 1 {
		t.Fatalf("unexpected failures: %+v", resp.Failures)
	}
}

func TestDeckHandler_MoveCard(t *testing.T) {
	e := newEcho()
	stub := &stubDeckService{
		moveFn: func(ctx context.Context, cardID, deckID string) (*domain.Card, error) {
			if cardID != "c1" || deckID != "d2" {
				t.Fatalf("unexpected args: %s %s", cardID, deckID)
			}
			return nil, domain.ErrForbidden
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/v1/cards/c1/deck", `{"deck_id":"d2"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := NewDeckHandler(stub).MoveCard(c); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
