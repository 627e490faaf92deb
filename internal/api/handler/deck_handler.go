package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
)

// DeckHandler handles HTTP requests for decks and cards.
type DeckHandler struct {
	service ports.DeckService
}

func NewDeckHandler(service ports.DeckService) *DeckHandler {
	return &DeckHandler{service: service}
}

// Create handles POST /v1/decks.
//
// @Summary      Create a deck
// @Tags         decks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createDeckRequest  true  "Deck"
// @Success      201   {object}  domain.Deck
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/decks [post]
func (h *DeckHandler) Create(c echo.Context) error {
	var req createDeckRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	deck, err := h.service.CreateDeck(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, deck)
}

// Get handles GET /v1/decks/:id.
//
// @Summary      Get an active deck
// @Tags         decks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Deck id"
// @Success      200  {object}  domain.Deck
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/decks/{id} [get]
func (h *DeckHandler) Get(c echo.Context) error {
	deck, err := h.service.GetDeck(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deck)
}

// Delete handles DELETE /v1/decks/:id. The deck is soft-deleted.
//
// @Summary      Delete a deck
// @Tags         decks
// @Security     BearerAuth
// @Param        id   path  string  true  "Deck id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/decks/{id} [delete]
func (h *DeckHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteDeck(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Restore handles POST /v1/decks/:id/restore.
//
// @Summary      Restore a deleted deck
// @Tags         decks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Deck id"
// @Success      200  {object}  domain.Deck
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/decks/{id}/restore [post]
func (h *DeckHandler) Restore(c echo.Context) error {
	deck, err := h.service.RestoreDeck(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deck)
}

// Purge handles DELETE /v1/decks/:id/purge.
//
// @Summary      Erase a deck
// @Tags         decks
// @Security     BearerAuth
// @Param        id   path  string  true  "Deck id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/decks/{id}/purge [delete]
func (h *DeckHandler) Purge(c echo.Context) error {
	if err := h.service.PurgeDeck(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddCard handles POST /v1/decks/:id/cards.
//
// @Summary      Add a card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Deck id"
// @Param        body  body      cardRequest  true  "Card"
// @Success      201   {object}  domain.Card
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/decks/{id}/cards [post]
func (h *DeckHandler) AddCard(c echo.Context) error {
	var req cardRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	card, err := h.service.AddCard(c.Request().Context(), c.Param("id"), req.Front, req.Back)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, card)
}

// ImportCards handles POST /v1/decks/:id/cards/import. Cards are stored
// independently; failed ones are listed by index with 207.
//
// @Summary      Import cards in bulk
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Deck id"
// @Param        body  body      importCardsRequest  true  "Cards"
// @Success      201   {object}  importCardsResponse
// @Success      207   {object}  importCardsResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/decks/{id}/cards/import [post]
func (h *DeckHandler) ImportCards(c echo.Context) error {
	var req importCardsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := make([]ports.CardInput, len(req.Cards))
	for i, card := range req.Cards {
		in[i] = ports.CardInput{Front: card.Front, Back: card.Back}
	}

	cards, err := h.service.ImportCards(c.Request().Context(), c.Param("id"), in)
	var batch *domain.BatchInsertError
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, importCardsResponse{Cards: cards})
	case errors.As(err, &batch):
		resp := importCardsResponse{}
		for i, card := range cards {
			if !batch.Failed(i) {
				resp.Cards = append(resp.Cards, card)
			}
		}
		for _, f := range batch.Failures {
			resp.Failures = append(resp.Failures, importFailure{Index: f.Index, Error: f.Err.Error()})
		}
		return c.JSON(http.StatusMultiStatus, resp)
	default:
		return err
	}
}

// MoveCard handles PUT /v1/cards/:id/deck.
//
// @Summary      Move a card to another deck
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Card id"
// @Param        body  body      moveCardRequest  true  "Target deck"
// @Success      200   {object}  domain.Card
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/cards/{id}/deck [put]
func (h *DeckHandler) MoveCard(c echo.Context) error {
	var req moveCardRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	card, err := h.service.MoveCard(c.Request().Context(), c.Param("id"), req.DeckID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}

// DeleteCard handles DELETE /v1/cards/:id.
//
// @Summary      Delete a card
// @Tags         cards
// @Security     BearerAuth
// @Param        id   path  string  true  "Card id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/cards/{id} [delete]
func (h *DeckHandler) DeleteCard(c echo.Context) error {
	if err := h.service.DeleteCard(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
