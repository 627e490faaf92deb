package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/infrastructure/db/memory"
)

type deckFixture struct {
	decks *memory.DocumentStore[*domain.Deck]
	cards *memory.DocumentStore[*domain.Card]
	svc   *DeckService
}

func newDeckFixture(t *testing.T) deckFixture {
	t.Helper()
	pool := newTestPool(t)
	decks := memory.NewDeckRepository(pool)
	cards := memory.NewCardRepository(pool)
	return deckFixture{decks: decks, cards: cards, svc: NewDeckService(decks, cards, zerolog.Nop())}
}

func mustCreateDeck(t *testing.T, svc *DeckService, ctx context.Context, name string) *domain.Deck {
	t.Helper()
	d, err := svc.CreateDeck(ctx, name, "")
	if err != nil {
		t.Fatalf("CreateDeck failed: %v", err)
	}
	return d
}

func TestDeckService_CreateAndGet(t *testing.T) {
	f := newDeckFixture(t)
	ctx := asUser("u1")

	d := mustCreateDeck(t, f.svc, ctx, "  Spanish verbs ")
	if d.OwnerID != "u1" || d.Name != "Spanish verbs" {
		t.Fatalf("unexpected deck: %+v", d)
	}

	got, err := f.svc.GetDeck(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDeck failed: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("unexpected deck id %s", got.ID)
	}
}

func TestDeckService_RequiresPrincipal(t *testing.T) {
	f := newDeckFixture(t)

	if _, err := f.svc.CreateDeck(context.Background(), "x", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeckService_OwnerCheck(t *testing.T) {
	f := newDeckFixture(t)
	d := mustCreateDeck(t, f.svc, asUser("u1"), "mine")

	if _, err := f.svc.GetDeck(asUser("u2"), d.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetDeck(asUser("root", domain.RoleAdmin), d.ID); err != nil {
		t.Fatalf("admin GetDeck failed: %v", err)
	}
	if _, err := f.svc.GetDeck(asUser("u1"), "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeckService_DeleteAndRestore(t *testing.T) {
	f := newDeckFixture(t)
	ctx := asUser("u1")
	d := mustCreateDeck(t, f.svc, ctx, "temp")

	if err := f.svc.DeleteDeck(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDeck failed: %v", err)
	}
	if _, err := f.svc.GetDeck(ctx, d.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("deleted deck must be hidden, got %v", err)
	}
	stored, err := f.decks.FindByID(ctx, d.ID).Await(ctx)
	if err != nil || stored == nil || stored.Status != domain.StatusDeleted {
		t.Fatalf("expected soft-deleted document to remain, got %+v, %v", stored, err)
	}

	restored, err := f.svc.RestoreDeck(ctx, d.ID)
	if err != nil {
		t.Fatalf("RestoreDeck failed: %v", err)
	}
	if restored.Status != domain.StatusActive {
		t.Fatalf("unexpected status after restore: %s", restored.Status)
	}
	if !restored.CreatedAt.Equal(d.CreatedAt) {
		t.Fatalf("restore must keep created_at")
	}
	if _, err := f.svc.GetDeck(ctx, d.ID); err != nil {
		t.Fatalf("restored deck not visible: %v", err)
	}
}

func TestDeckService_PurgeDeck(t *testing.T) {
	f := newDeckFixture(t)
	d := mustCreateDeck(t, f.svc, asUser("u1"), "gone")

	if err := f.svc.PurgeDeck(asUser("u1"), d.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin purge: expected ErrForbidden, got %v", err)
	}
	admin := asUser("root", domain.RoleAdmin)
	if err := f.svc.PurgeDeck(admin, d.ID); err != nil {
		t.Fatalf("PurgeDeck failed: %v", err)
	}
	if f.decks.Len() != 0 {
		t.Fatalf("expected deck to be erased")
	}
	if err := f.svc.PurgeDeck(admin, d.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeckService_Cards(t *testing.T) {
	f := newDeckFixture(t)
	ctx := asUser("u1")
	src := mustCreateDeck(t, f.svc, ctx, "src")
	dst := mustCreateDeck(t, f.svc, ctx, "dst")

	card, err := f.svc.AddCard(ctx, src.ID, "hola", "hello")
	if err != nil {
		t.Fatalf("AddCard failed: %v", err)
	}
	if card.DeckID != src.ID || card.OwnerID != "u1" {
		t.Fatalf("unexpected card: %+v", card)
	}

	moved, err := f.svc.MoveCard(ctx, card.ID, dst.ID)
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}
	if moved.DeckID != dst.ID {
		t.Fatalf("card not moved: %+v", moved)
	}
	again, err := f.svc.MoveCard(ctx, card.ID, dst.ID)
	if err != nil || again.DeckID != dst.ID {
		t.Fatalf("repeated MoveCard: %+v, %v", again, err)
	}

	if _, err := f.svc.MoveCard(asUser("u2"), card.ID, dst.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := f.svc.DeleteDeck(ctx, src.ID); err != nil {
		t.Fatalf("DeleteDeck failed: %v", err)
	}
	if _, err := f.svc.MoveCard(ctx, card.ID, src.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("move into deleted deck: expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := f.svc.AddCard(ctx, src.ID, "a", "b"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("add to deleted deck: expected ErrDocumentNotFound, got %v", err)
	}

	if err := f.svc.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard failed: %v", err)
	}
	if err := f.svc.DeleteCard(ctx, card.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeckService_ImportCards(t *testing.T) {
	f := newDeckFixture(t)
	ctx := asUser("u1")
	d := mustCreateDeck(t, f.svc, ctx, "bulk")

	cards, err := f.svc.ImportCards(ctx, d.ID, []ports.CardInput{
		{Front: "uno", Back: "one"},
		{Front: "dos", Back: "two"},
		{Front: "tres", Back: "three"},
	})
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.ID == "" || c.DeckID != d.ID {
			t.Fatalf("unexpected card: %+v", c)
		}
	}
	if f.cards.Len() != 3 {
		t.Fatalf("expected 3 stored cards, got %d", f.cards.Len())
	}
}

func TestDeckService_ImportCards_PartialFailure(t *testing.T) {
	f := newDeckFixture(t)
	ctx := asUser("u1")
	d := mustCreateDeck(t, f.svc, ctx, "bulk")

	existing, err := f.svc.AddCard(ctx, d.ID, "x", "y")
	if err != nil {
		t.Fatalf("AddCard failed: %v", err)
	}

	// Reuse an existing id to force a duplicate on the second card.
	dup := &domain.Card{DeckID: d.ID, OwnerID: "u1"}
	dup.ID = existing.ID
	_, err = f.cards.InsertMany(ctx, []*domain.Card{{DeckID: d.ID}, dup, {DeckID: d.ID}}).Await(ctx)

	var batch *domain.BatchInsertError
	if !errors.As(err, &batch) {
		t.Fatalf("expected BatchInsertError, got %v", err)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].Index != 1 {
		t.Fatalf("unexpected failures: %+v", batch.Failures)
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey through the batch error")
	}
	if f.cards.Len() != 3 {
		t.Fatalf("expected the other cards stored, got %d", f.cards.Len())
	}
}
