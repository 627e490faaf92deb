// Package memory implements the document repositories in process, for
// development and tests. Documents are kept BSON-encoded so every read hands
// out an independent copy, the same as a round trip to MongoDB.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/pkg/async"
	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

// UniqueIndex rejects two active documents sharing a non-empty key.
type UniqueIndex[T domain.Entity] struct {
	Name string
	Key  func(T) string
}

// DocumentStore is an in-memory ports.DocumentRepository.
type DocumentStore[T domain.Entity] struct {
	name    string
	pool    *async.Pool
	newDoc  func() T
	uniques []UniqueIndex[T]
	now     func() time.Time

	mu   sync.RWMutex
	docs map[string][]byte
}

// NewDocumentStore creates an empty store. newDoc must return a fresh,
// non-nil T to decode into.
func NewDocumentStore[T domain.Entity](name string, pool *async.Pool, newDoc func() T, uniques ...UniqueIndex[T]) *DocumentStore[T] {
	return &DocumentStore[T]{
		name:    name,
		pool:    pool,
		newDoc:  newDoc,
		uniques: uniques,
		now:     time.Now,
		docs:    make(map[string][]byte),
	}
}

// Ensure interfaces are met.
var _ ports.DeckRepository = (*DocumentStore[*domain.Deck])(nil)
var _ ports.CardRepository = (*DocumentStore[*domain.Card])(nil)

func (s *DocumentStore[T]) Insert(_ context.Context, doc T) *async.Future[T] {
	return async.Submit(s.pool, func() (T, error) {
		defer metrics.ObserveRepository(s.name, "insert")()
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.insertLocked(doc)
	})
}

func (s *DocumentStore[T]) InsertMany(_ context.Context, docs []T) *async.Future[[]T] {
	return async.Submit(s.pool, func() ([]T, error) {
		defer metrics.ObserveRepository(s.name, "insert_many")()
		var batchErr domain.BatchInsertError
		for i, doc := range docs {
			s.mu.Lock()
			_, err := s.insertLocked(doc)
			s.mu.Unlock()
			if err != nil {
				batchErr.Failures = append(batchErr.Failures, domain.InsertFailure{Index: i, Err: err})
			}
		}
		if len(batchErr.Failures) > 0 {
			return docs, &batchErr
		}
		return docs, nil
	})
}

func (s *DocumentStore[T]) Save(_ context.Context, doc T) *async.Future[T] {
	return async.Submit(s.pool, func() (T, error) {
		defer metrics.ObserveRepository(s.name, "save")()
		s.mu.Lock()
		defer s.mu.Unlock()

		m := doc.Meta()
		if m.ID == "" {
			return s.insertLocked(doc)
		}

		orig := *m
		now := s.timestamp()
		if raw, ok := s.docs[m.ID]; ok {
			existing, err := s.decode(raw)
			if err != nil {
				var zero T
				return zero, err
			}
			m.CreatedAt = existing.Meta().CreatedAt
		} else if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.ModifiedAt = now
		if m.Status == "" {
			m.Status = domain.StatusActive
		}

		if err := s.putLocked(doc); err != nil {
			*m = orig
			var zero T
			return zero, err
		}
		return doc, nil
	})
}

func (s *DocumentStore[T]) SoftDelete(_ context.Context, id string) *async.Future[struct{}] {
	return async.Submit(s.pool, func() (struct{}, error) {
		defer metrics.ObserveRepository(s.name, "soft_delete")()
		s.mu.Lock()
		defer s.mu.Unlock()

		raw, ok := s.docs[id]
		if !ok {
			return struct{}{}, nil
		}
		doc, err := s.decode(raw)
		if err != nil {
			return struct{}{}, err
		}
		m := doc.Meta()
		m.Status = domain.StatusDeleted
		m.ModifiedAt = s.timestamp()
		return struct{}{}, s.encodeLocked(doc)
	})
}

func (s *DocumentStore[T]) HardDelete(_ context.Context, id string) *async.Future[struct{}] {
	return async.Submit(s.pool, func() (struct{}, error) {
		defer metrics.ObserveRepository(s.name, "hard_delete")()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.docs, id)
		return struct{}{}, nil
	})
}

func (s *DocumentStore[T]) FindByID(_ context.Context, id string) *async.Future[T] {
	return async.Submit(s.pool, func() (T, error) {
		defer metrics.ObserveRepository(s.name, "find_by_id")()
		doc, _, err := s.get(id, "")
		return doc, err
	})
}

func (s *DocumentStore[T]) FindByIDWithStatus(_ context.Context, id string, status domain.Status) *async.Future[T] {
	return async.Submit(s.pool, func() (T, error) {
		defer metrics.ObserveRepository(s.name, "find_by_id_with_status")()
		doc, _, err := s.get(id, status)
		return doc, err
	})
}

func (s *DocumentStore[T]) ExistsByID(_ context.Context, id string) *async.Future[bool] {
	return async.Submit(s.pool, func() (bool, error) {
		defer metrics.ObserveRepository(s.name, "exists_by_id")()
		_, found, err := s.get(id, "")
		return found, err
	})
}

func (s *DocumentStore[T]) ExistsByIDWithStatus(_ context.Context, id string, status domain.Status) *async.Future[bool] {
	return async.Submit(s.pool, func() (bool, error) {
		defer metrics.ObserveRepository(s.name, "exists_by_id_with_status")()
		_, found, err := s.get(id, status)
		return found, err
	})
}

// FindOne returns the first document with status accepted by match, or nil.
func (s *DocumentStore[T]) FindOne(_ context.Context, status domain.Status, match func(T) bool) *async.Future[T] {
	return async.Submit(s.pool, func() (T, error) {
		defer metrics.ObserveRepository(s.name, "find_one")()
		s.mu.RLock()
		defer s.mu.RUnlock()
		var zero T
		for _, raw := range s.docs {
			doc, err := s.decode(raw)
			if err != nil {
				return zero, err
			}
			if doc.Meta().Status == status && match(doc) {
				return doc, nil
			}
		}
		return zero, nil
	})
}

// Len returns the number of stored documents of any status.
func (s *DocumentStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *DocumentStore[T]) insertLocked(doc T) (T, error) {
	var zero T
	m := doc.Meta()
	orig := *m

	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	if _, exists := s.docs[m.ID]; exists {
		*m = orig
		return zero, fmt.Errorf("%w: _id", domain.ErrDuplicateKey)
	}
	now := s.timestamp()
	m.CreatedAt = now
	m.ModifiedAt = now
	if m.Status == "" {
		m.Status = domain.StatusActive
	}

	if err := s.putLocked(doc); err != nil {
		*m = orig
		return zero, err
	}
	return doc, nil
}

// putLocked enforces the unique indexes and stores doc.
func (s *DocumentStore[T]) putLocked(doc T) error {
	m := doc.Meta()
	if m.Status == domain.StatusActive {
		for _, idx := range s.uniques {
			key := idx.Key(doc)
			if key == "" {
				continue
			}
			for id, raw := range s.docs {
				if id == m.ID {
					continue
				}
				other, err := s.decode(raw)
				if err != nil {
					return err
				}
				if other.Meta().Status == domain.StatusActive && idx.Key(other) == key {
					return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, idx.Name)
				}
			}
		}
	}
	return s.encodeLocked(doc)
}

func (s *DocumentStore[T]) encodeLocked(doc T) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", s.name, err)
	}
	s.docs[doc.Meta().ID] = raw
	return nil
}

// get looks up id; an empty status matches any.
func (s *DocumentStore[T]) get(id string, status domain.Status) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	raw, ok := s.docs[id]
	if !ok {
		return zero, false, nil
	}
	doc, err := s.decode(raw)
	if err != nil {
		return zero, false, err
	}
	if status != "" && doc.Meta().Status != status {
		return zero, false, nil
	}
	return doc, true, nil
}

func (s *DocumentStore[T]) decode(raw []byte) (T, error) {
	doc := s.newDoc()
	if err := bson.Unmarshal(raw, doc); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: decode: %w", s.name, err)
	}
	return doc, nil
}

// timestamp matches the millisecond precision of BSON datetimes.
func (s *DocumentStore[T]) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
