// internal/common/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"widget-assistant/internal/common/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient holds the catalog database handle.
type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	cfg      config.MongoConfig
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(config.GetDuration(cfg.ConnectTimeout))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	return &MongoClient{
		Client:   client,
		Database: client.Database(cfg.Database),
		cfg:      cfg,
	}, nil
}

func (c *MongoClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (c *MongoClient) Products() *mongo.Collection {
	return c.Database.Collection(c.cfg.ProductsCollection)
}

func (c *MongoClient) Templates() *mongo.Collection {
	return c.Database.Collection(c.cfg.TemplatesCollection)
}

func (c *MongoClient) Phrases() *mongo.Collection {
	return c.Database.Collection(c.cfg.PhrasesCollection)
}

// EnsureIndexes creates the tenant and text indexes the catalog queries rely on.
func (c *MongoClient) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.Products().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "brand", Value: 1}}},
		{Keys: bson.D{
			{Key: "name", Value: "text"},
			{Key: "description", Value: "text"},
			{Key: "features", Value: "text"},
		}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	_, err = c.Templates().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "key", Value: 1}, {Key: "language", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create template indexes: %w", err)
	}
	return nil
}

func (c *MongoClient) Close(ctx context.Context) error {
	if c.Client != nil {
		return c.Client.Disconnect(ctx)
	}
	return nil
}
