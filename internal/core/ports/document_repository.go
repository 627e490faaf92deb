package ports

import (
	"context"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

// DocumentRepository is the asynchronous CRUD contract shared by every entity
// type. Each call is a single-document atomic operation scheduled on the
// shared worker pool; there are no cross-document transactions.
type DocumentRepository[T domain.Entity] interface {
	// Insert assigns id and timestamps, stores doc and returns it.
	// Fails with domain.ErrDuplicateKey on a unique index violation.
	Insert(ctx context.Context, doc T) *async.Future[T]
	// InsertMany stores each document independently. When any fail the error
	// is a *domain.BatchInsertError naming the failed indexes.
	InsertMany(ctx context.Context, docs []T) *async.Future[[]T]
	// Save upserts doc by id and bumps its modification time.
	Save(ctx context.Context, doc T) *async.Future[T]
	// SoftDelete marks the document deleted. Absent ids are not an error.
	SoftDelete(ctx context.Context, id string) *async.Future[struct{}]
	// HardDelete erases the document. Absent ids are not an error.
	HardDelete(ctx context.Context, id string) *async.Future[struct{}]
	// FindByID returns the document regardless of status, or nil.
	FindByID(ctx context.Context, id string) *async.Future[T]
	// FindByIDWithStatus returns the document only when its status matches.
	FindByIDWithStatus(ctx context.Context, id string, status domain.Status) *async.Future[T]
	ExistsByID(ctx context.Context, id string) *async.Future[bool]
	ExistsByIDWithStatus(ctx context.Context, id string, status domain.Status) *async.Future[bool]
}

// DeckRepository stores decks.
type DeckRepository = DocumentRepository[*domain.Deck]

// CardRepository stores cards.
type CardRepository = DocumentRepository[*domain.Card]
