package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/core/security"
)

// DeckService manages decks and their cards for the calling principal.
// Admins may act on any deck.
type DeckService struct {
	decks ports.DeckRepository
	cards ports.CardRepository
	log   zerolog.Logger
}

var _ ports.DeckService = (*DeckService)(nil)

func NewDeckService(decks ports.DeckRepository, cards ports.CardRepository, log zerolog.Logger) *DeckService {
	return &DeckService{
		decks: decks,
		cards: cards,
		log:   log.With().Str("component", "deck_service").Logger(),
	}
}

func (s *DeckService) CreateDeck(ctx context.Context, name, description string) (*domain.Deck, error) {
	p, err := security.PrincipalFrom(ctx)
	if err != nil {
		return nil, err
	}
	deck := &domain.Deck{
		OwnerID:     p.ID,
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	created, err := s.decks.Insert(ctx, deck).Await(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("deck_id", created.ID).Str("owner_id", p.ID).Msg("deck created")
	return created, nil
}

func (s *DeckService) GetDeck(ctx context.Context, id string) (*domain.Deck, error) {
	return s.activeDeck(ctx, id)
}

// DeleteDeck soft-deletes the deck. Its cards stay in place and reappear on
// restore.
func (s *DeckService) DeleteDeck(ctx context.Context, id string) error {
	deck, err := s.activeDeck(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.decks.SoftDelete(ctx, deck.ID).Await(ctx); err != nil {
		return err
	}
	s.log.Info().Str("deck_id", deck.ID).Msg("deck deleted")
	return nil
}

func (s *DeckService) RestoreDeck(ctx context.Context, id string) (*domain.Deck, error) {
	sc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	deck, err := s.decks.FindByID(ctx, id).Await(ctx)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, domain.ErrDocumentNotFound
	}
	if err := authorize(sc, deck.OwnerID); err != nil {
		return nil, err
	}
	if deck.IsActive() {
		return deck, nil
	}
	deck.Status = domain.StatusActive
	return s.decks.Save(ctx, deck).Await(ctx)
}

// PurgeDeck erases a deck regardless of status. Admin only.
func (s *DeckService) PurgeDeck(ctx context.Context, id string) error {
	sc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if !sc.HasRole(domain.RoleAdmin) {
		return domain.ErrForbidden
	}
	exists, err := s.decks.ExistsByID(ctx, id).Await(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if _, err := s.decks.HardDelete(ctx, id).Await(ctx); err != nil {
		return err
	}
	s.log.Warn().Str("deck_id", id).Str("by", sc.Principal.Username).Msg("deck purged")
	return nil
}

func (s *DeckService) AddCard(ctx context.Context, deckID, front, back string) (*domain.Card, error) {
	deck, err := s.activeDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	card := &domain.Card{DeckID: deck.ID, OwnerID: deck.OwnerID, Front: front, Back: back}
	return s.cards.Insert(ctx, card).Await(ctx)
}

// ImportCards inserts the batch independently per card. On partial failure
// the cards are returned together with a *domain.BatchInsertError.
func (s *DeckService) ImportCards(ctx context.Context, deckID string, in []ports.CardInput) ([]*domain.Card, error) {
	deck, err := s.activeDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	cards := make([]*domain.Card, len(in))
	for i, c := range in {
		cards[i] = &domain.Card{DeckID: deck.ID, OwnerID: deck.OwnerID, Front: c.Front, Back: c.Back}
	}
	out, err := s.cards.InsertMany(ctx, cards).Await(ctx)
	s.log.Info().Str("deck_id", deck.ID).Int("cards", len(cards)).Err(err).Msg("cards imported")
	return out, err
}

// MoveCard puts the card into targetDeckID. Moving into the current deck is
// a no-op.
func (s *DeckService) MoveCard(ctx context.Context, cardID, targetDeckID string) (*domain.Card, error) {
	sc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	cardF := s.cards.FindByIDWithStatus(ctx, cardID, domain.StatusActive)
	targetF := s.decks.FindByIDWithStatus(ctx, targetDeckID, domain.StatusActive)

	card, err := cardF.Await(ctx)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, domain.ErrDocumentNotFound
	}
	if err := authorize(sc, card.OwnerID); err != nil {
		return nil, err
	}
	target, err := targetF.Await(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrDocumentNotFound
	}
	if err := authorize(sc, target.OwnerID); err != nil {
		return nil, err
	}
	if card.DeckID == target.ID {
		return card, nil
	}
	card.DeckID = target.ID
	card.OwnerID = target.OwnerID
	return s.cards.Save(ctx, card).Await(ctx)
}

func (s *DeckService) DeleteCard(ctx context.Context, cardID string) error {
	sc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	card, err := s.cards.FindByID(ctx, cardID).Await(ctx)
	if err != nil {
		return err
	}
	if card == nil {
		return domain.ErrDocumentNotFound
	}
	if err := authorize(sc, card.OwnerID); err != nil {
		return err
	}
	_, err = s.cards.HardDelete(ctx, card.ID).Await(ctx)
	return err
}

func (s *DeckService) caller(ctx context.Context) (security.Context, error) {
	sc, ok := security.FromContext(ctx)
	if !ok {
		return security.Context{}, domain.ErrForbidden
	}
	return sc, nil
}

func (s *DeckService) activeDeck(ctx context.Context, id string) (*domain.Deck, error) {
	sc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	deck, err := s.decks.FindByIDWithStatus(ctx, id, domain.StatusActive).Await(ctx)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, domain.ErrDocumentNotFound
	}
	if err := authorize(sc, deck.OwnerID); err != nil {
		return nil, err
	}
	return deck, nil
}

func authorize(sc security.Context, ownerID string) error {
	if sc.Principal.ID == ownerID || sc.HasRole(domain.RoleAdmin) {
		return nil
	}
	return domain.ErrForbidden
}
