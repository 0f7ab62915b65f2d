package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type cartDocument struct {
	Key      string    `bson:"_id"`
	UserID   int64     `bson:"user_id"`
	Payload  string    `bson:"payload"`
	ExpireAt time.Time `bson:"expire_at"`
}

// MongoBackend stores one document per cart and lets a TTL index on
// expire_at garbage-collect abandoned carts.
type MongoBackend struct {
	collection *mongo.Collection
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{
		collection: db.Collection("shopping_carts"),
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoBackend) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expire_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoBackend) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": cacheKey(userID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	// The TTL monitor runs about once a minute, so stale documents can linger.
	if time.Now().After(doc.ExpireAt) {
		return nil, ErrCacheMiss
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(doc.Payload), &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (m *MongoBackend) Set(ctx context.Context, userID int64, cart *domain.Cart, ttl time.Duration) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	doc := cartDocument{
		Key:      cacheKey(userID),
		UserID:   userID,
		Payload:  string(payload),
		ExpireAt: time.Now().Add(ttl),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoBackend) Delete(ctx context.Context, userID int64) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": cacheKey(userID)}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoBackend) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}
