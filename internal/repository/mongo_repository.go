package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/medmarket/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m mongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// UpsertCart stores the cart items under the version carried in UpdatedAt.
// A cart that was never touched is stamped with the current time.
func (m mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	if cart.UpdatedAt.IsZero() {
		cart.Touch(time.Now())
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = cart.UpdatedAt
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{
		"$set": bson.M{
			"items":      cart.Items,
			"updated_at": cart.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"user_id":    cart.UserID,
			"created_at": cart.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m mongoRepository) DeleteCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m mongoRepository) UsersWithProduct(ctx context.Context, productID int64) ([]string, error) {
	raw, err := m.collection.Distinct(ctx, "user_id", bson.M{"items.product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("failed to find carts with product: %w", err)
	}

	userIDs := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			userIDs = append(userIDs, id)
		}
	}
	return userIDs, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "items.product_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the cart indexes when repo is backed by MongoDB.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	if m, ok := repo.(*mongoRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}
