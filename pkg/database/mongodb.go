package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"strangerchat/internal/config"
	"strangerchat/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connect(cfg)
	})

	return err
}

func connect(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)

	log.Printf("Connected to MongoDB database: %s", cfg.Database)

	go func() {
		if err := createIndexes(); err != nil {
			log.Printf("Warning: failed to create indexes: %v", err)
		}
	}()

	return nil
}

// GetDatabase returns the database instance
func GetDatabase() *mongo.Database {
	if database == nil {
		log.Fatal("Database not initialized. Call InitMongoDB first.")
	}
	return database
}

// Disconnect closes the MongoDB connection
func Disconnect() error {
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}
	return nil
}

// createIndexes provisions the indexes the pairing queries depend on. The
// searchQueue timestamp index backs fair FIFO dequeue; the partial unique
// index enforces one active ticket per user; the chats participants index
// backs per-user session listing.
func createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{
			collection: store.CollectionQueue,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "timestamp", Value: 1},
						{Key: "_id", Value: 1},
					},
				},
				{
					Keys: bson.D{{Key: "user_id", Value: 1}},
					Options: options.Index().
						SetUnique(true).
						SetPartialFilterExpression(bson.D{{Key: "status", Value: "waiting"}}),
				},
				{
					Keys: bson.D{{Key: "status", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "expires_at", Value: 1}},
				},
			},
		},
		{
			collection: store.CollectionChats,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "room_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{
						{Key: "participants", Value: 1},
						{Key: "created_at", Value: -1},
					},
				},
				{
					Keys: bson.D{{Key: "status", Value: 1}},
				},
			},
		},
		{
			collection: store.CollectionStatistics,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "last_activity", Value: 1}},
				},
			},
		},
	}

	for _, group := range indexes {
		collection := database.Collection(group.collection)

		_, err := collection.Indexes().CreateMany(ctx, group.indexes)
		if err != nil {
			log.Printf("Failed to create indexes for collection %s: %v", group.collection, err)
			continue
		}
		log.Printf("Created %d indexes for collection: %s", len(group.indexes), group.collection)
	}

	return nil
}
