package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

const (
	usersCollection = "users"
	decksCollection = "decks"
	cardsCollection = "cards"
)

// UserRepository is the MongoDB credential store.
type UserRepository struct {
	*DocumentRepository[*domain.User]
}

var _ ports.CredentialStore = (*UserRepository)(nil)

// NewUserRepository binds the users collection. Usernames and emails are
// unique among active documents only.
func NewUserRepository(db *mongo.Database, pool *async.Pool) *UserRepository {
	active := bson.M{fieldStatus: domain.StatusActive}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_active_username").SetUnique(true).SetPartialFilterExpression(active),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_active_email").SetUnique(true).SetPartialFilterExpression(active),
		},
	}
	return &UserRepository{
		DocumentRepository: NewDocumentRepository(db.Collection(usersCollection), pool,
			func() *domain.User { return &domain.User{} }, indexes...),
	}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) *async.Future[*domain.User] {
	return r.FindOne(ctx, "find_by_username", bson.M{"username": username, fieldStatus: domain.StatusActive})
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) *async.Future[bool] {
	return r.Exists(ctx, "exists_by_username", bson.M{"username": username, fieldStatus: domain.StatusActive})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) *async.Future[bool] {
	return r.Exists(ctx, "exists_by_email", bson.M{"email": email, fieldStatus: domain.StatusActive})
}

// NewDeckRepository binds the decks collection.
func NewDeckRepository(db *mongo.Database, pool *async.Pool) *DocumentRepository[*domain.Deck] {
	return NewDocumentRepository(db.Collection(decksCollection), pool,
		func() *domain.Deck { return &domain.Deck{} },
		mongo.IndexModel{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: fieldStatus, Value: 1}},
			Options: options.Index().SetName("owner_status"),
		},
	)
}

// NewCardRepository binds the cards collection.
func NewCardRepository(db *mongo.Database, pool *async.Pool) *DocumentRepository[*domain.Card] {
	return NewDocumentRepository(db.Collection(cardsCollection), pool,
		func() *domain.Card { return &domain.Card{} },
		mongo.IndexModel{
			Keys:    bson.D{{Key: "deck_id", Value: 1}, {Key: fieldStatus, Value: 1}},
			Options: options.Index().SetName("deck_status"),
		},
	)
}
