package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/pkg/async"
	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

const (
	fieldID         = "_id"
	fieldStatus     = "status"
	fieldCreatedAt  = "created_at"
	fieldModifiedAt = "modified_at"
)

// DocumentRepository implements ports.DocumentRepository over one collection.
// Every call runs on the shared pool with its own timeout, detached from the
// caller's cancellation.
type DocumentRepository[T domain.Entity] struct {
	col     *mongo.Collection
	pool    *async.Pool
	newDoc  func() T
	now     func() time.Time
	indexes []mongo.IndexModel
}

// NewDocumentRepository binds col. newDoc must return a fresh, non-nil T.
func NewDocumentRepository[T domain.Entity](col *mongo.Collection, pool *async.Pool, newDoc func() T, indexes ...mongo.IndexModel) *DocumentRepository[T] {
	return &DocumentRepository[T]{
		col:     col,
		pool:    pool,
		newDoc:  newDoc,
		now:     time.Now,
		indexes: indexes,
	}
}

// EnsureIndexes creates the indexes the repository was built with.
func (r *DocumentRepository[T]) EnsureIndexes(ctx context.Context) error {
	if len(r.indexes) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.col.Indexes().CreateMany(ctx, r.indexes); err != nil {
		return fmt.Errorf("%s: create indexes: %w", r.col.Name(), err)
	}
	return nil
}

func (r *DocumentRepository[T]) Insert(ctx context.Context, doc T) *async.Future[T] {
	return async.Submit(r.pool, func() (T, error) {
		defer metrics.ObserveRepository(r.col.Name(), "insert")()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		var zero T
		m := doc.Meta()
		orig := *m
		r.stampNew(m)

		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			*m = orig
			return zero, r.writeError("insert", err)
		}
		return doc, nil
	})
}

func (r *DocumentRepository[T]) InsertMany(ctx context.Context, docs []T) *async.Future[[]T] {
	return async.Submit(r.pool, func() ([]T, error) {
		defer metrics.ObserveRepository(r.col.Name(), "insert_many")()
		if len(docs) == 0 {
			return docs, nil
		}
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		batch := make([]any, len(docs))
		origs := make([]domain.Document, len(docs))
		for i, doc := range docs {
			m := doc.Meta()
			origs[i] = *m
			r.stampNew(m)
			batch[i] = doc
		}
		restore := func(i int) {
			if i >= 0 && i < len(docs) {
				*docs[i].Meta() = origs[i]
			}
		}

		_, err := r.col.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
		if err == nil {
			return docs, nil
		}

		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
			for i := range docs {
				restore(i)
			}
			return docs, fmt.Errorf("%s: insert many: %w", r.col.Name(), err)
		}
		batchErr := &domain.BatchInsertError{}
		for _, we := range bwe.WriteErrors {
			restore(we.Index)
			batchErr.Failures = append(batchErr.Failures, domain.InsertFailure{
				Index: we.Index,
				Err:   writeErrorKind(we.WriteError),
			})
		}
		return docs, batchErr
	})
}

func (r *DocumentRepository[T]) Save(ctx context.Context, doc T) *async.Future[T] {
	return async.Submit(r.pool, func() (T, error) {
		defer metrics.ObserveRepository(r.col.Name(), "save")()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		var zero T
		m := doc.Meta()
		now := r.timestamp()
		if m.ID == "" {
			m.ID = primitive.NewObjectID().Hex()
		}
		if m.Status == "" {
			m.Status = domain.StatusActive
		}
		m.ModifiedAt = now

		set, err := toSetDocument(doc)
		if err != nil {
			return zero, err
		}
		update := bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{fieldCreatedAt: now},
		}
		opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

		saved := r.newDoc()
		if err := r.col.FindOneAndUpdate(ctx, bson.M{fieldID: m.ID}, update, opts).Decode(saved); err != nil {
			return zero, r.writeError("save", err)
		}
		return saved, nil
	})
}

func (r *DocumentRepository[T]) SoftDelete(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Submit(r.pool, func() (struct{}, error) {
		defer metrics.ObserveRepository(r.col.Name(), "soft_delete")()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		update := bson.M{"$set": bson.M{
			fieldStatus:     domain.StatusDeleted,
			fieldModifiedAt: r.timestamp(),
		}}
		if _, err := r.col.UpdateOne(ctx, bson.M{fieldID: id}, update); err != nil {
			return struct{}{}, fmt.Errorf("%s: soft delete: %w", r.col.Name(), err)
		}
		return struct{}{}, nil
	})
}

func (r *DocumentRepository[T]) HardDelete(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Submit(r.pool, func() (struct{}, error) {
		defer metrics.ObserveRepository(r.col.Name(), "hard_delete")()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		if _, err := r.col.DeleteOne(ctx, bson.M{fieldID: id}); err != nil {
			return struct{}{}, fmt.Errorf("%s: hard delete: %w", r.col.Name(), err)
		}
		return struct{}{}, nil
	})
}

func (r *DocumentRepository[T]) FindByID(ctx context.Context, id string) *async.Future[T] {
	return r.FindOne(ctx, "find_by_id", bson.M{fieldID: id})
}

func (r *DocumentRepository[T]) FindByIDWithStatus(ctx context.Context, id string, status domain.Status) *async.Future[T] {
	return r.FindOne(ctx, "find_by_id_with_status", bson.M{fieldID: id, fieldStatus: status})
}

func (r *DocumentRepository[T]) ExistsByID(ctx context.Context, id string) *async.Future[bool] {
	return r.Exists(ctx, "exists_by_id", bson.M{fieldID: id})
}

func (r *DocumentRepository[T]) ExistsByIDWithStatus(ctx context.Context, id string, status domain.Status) *async.Future[bool] {
	return r.Exists(ctx, "exists_by_id_with_status", bson.M{fieldID: id, fieldStatus: status})
}

// FindOne decodes the first document matching filter, or returns nil.
// op labels the call in metrics.
func (r *DocumentRepository[T]) FindOne(ctx context.Context, op string, filter bson.M) *async.Future[T] {
	return async.Submit(r.pool, func() (T, error) {
		defer metrics.ObserveRepository(r.col.Name(), op)()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		var zero T
		doc := r.newDoc()
		if err := r.col.FindOne(ctx, filter).Decode(doc); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return zero, nil
			}
			return zero, fmt.Errorf("%s: %s: %w", r.col.Name(), op, err)
		}
		return doc, nil
	})
}

// Exists reports whether any document matches filter.
func (r *DocumentRepository[T]) Exists(ctx context.Context, op string, filter bson.M) *async.Future[bool] {
	return async.Submit(r.pool, func() (bool, error) {
		defer metrics.ObserveRepository(r.col.Name(), op)()
		ctx, cancel := r.opContext(ctx)
		defer cancel()

		opts := options.FindOne().SetProjection(bson.M{fieldID: 1})
		err := r.col.FindOne(ctx, filter, opts).Err()
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return false, nil
		default:
			return false, fmt.Errorf("%s: %s: %w", r.col.Name(), op, err)
		}
	})
}

// opContext detaches the storage call from the caller: abandoning the future
// does not abort the write.
func (r *DocumentRepository[T]) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
}

func (r *DocumentRepository[T]) stampNew(m *domain.Document) {
	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	now := r.timestamp()
	m.CreatedAt = now
	m.ModifiedAt = now
	if m.Status == "" {
		m.Status = domain.StatusActive
	}
}

// timestamp matches the millisecond precision of BSON datetimes.
func (r *DocumentRepository[T]) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *DocumentRepository[T]) writeError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrDuplicateKey, r.col.Name(), err)
	}
	return fmt.Errorf("%s: %s: %w", r.col.Name(), op, err)
}

func writeErrorKind(we mongo.WriteError) error {
	if we.HasErrorCode(11000) || we.HasErrorCode(11001) || we.HasErrorCode(12582) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, we.Message)
	}
	return errors.New(we.Message)
}

// toSetDocument encodes doc for a $set, leaving out the fields that must not
// change after insert.
func toSetDocument(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(set, fieldID)
	delete(set, fieldCreatedAt)
	return set, nil
}
