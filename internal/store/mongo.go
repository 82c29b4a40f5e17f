package store

import (
	"context"
	"fmt"
	"time"

	"strangerchat/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names are contractual: the UI layer and any sibling process
// address the same queue, session and statistics documents by these names.
const (
	CollectionQueue      = "searchQueue"
	CollectionChats      = "chats"
	CollectionStatistics = "statistics"
	CollectionSystem     = "system"

	sentinelID = "connection_test"
)

// MongoStore implements Tickets, Sessions, Stats and Prober on MongoDB.
// The conditional claim relies on the server's transaction support, so the
// backing deployment must be a replica set.
type MongoStore struct {
	db     *mongo.Database
	queue  *mongo.Collection
	chats  *mongo.Collection
	stats  *mongo.Collection
	system *mongo.Collection
}

// NewMongoStore wraps db with the contractual collections.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:     db,
		queue:  db.Collection(CollectionQueue),
		chats:  db.Collection(CollectionChats),
		stats:  db.Collection(CollectionStatistics),
		system: db.Collection(CollectionSystem),
	}
}

// Tickets

func (s *MongoStore) Insert(ctx context.Context, ticket *models.Ticket) error {
	// The partial unique index on user_id (status=waiting) turns a
	// concurrent double-enqueue into a duplicate key error.
	count, err := s.queue.CountDocuments(ctx, bson.M{
		"user_id": ticket.UserID,
		"status":  models.TicketWaiting,
	})
	if err != nil {
		return fmt.Errorf("failed to check active ticket: %w", err)
	}
	if count > 0 {
		return ErrAlreadyQueued
	}

	result, err := s.queue.InsertOne(ctx, ticket)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyQueued
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		ticket.ID = oid
	}
	return nil
}

func (s *MongoStore) Cancel(ctx context.Context, userID string) error {
	_, err := s.queue.UpdateOne(ctx,
		bson.M{"user_id": userID, "status": models.TicketWaiting},
		bson.M{"$set": bson.M{"status": models.TicketCancelled}},
	)
	if err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}
	// Zero matched documents means absent or already claimed: a no-op.
	return nil
}

func (s *MongoStore) Active(ctx context.Context, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.queue.FindOne(ctx, bson.M{
		"user_id": userID,
		"status":  models.TicketWaiting,
	}).Decode(&ticket)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active ticket: %w", err)
	}
	return &ticket, nil
}

func (s *MongoStore) Waiting(ctx context.Context, limit int64) ([]models.Ticket, error) {
	// timestamp ascending is the fairness guarantee; _id breaks same-
	// millisecond ties deterministically.
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.queue.Find(ctx, bson.M{"status": models.TicketWaiting}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []models.Ticket
	if err = cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode waiting tickets: %w", err)
	}
	return tickets, nil
}

func (s *MongoStore) ClaimPair(ctx context.Context, first, second models.Ticket, chatSession *models.ChatSession) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start claim session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()

		for _, ticket := range []models.Ticket{first, second} {
			result, err := s.queue.UpdateOne(sc,
				bson.M{"_id": ticket.ID, "status": models.TicketWaiting},
				bson.M{"$set": bson.M{
					"status":     models.TicketClaimed,
					"claimed_at": now,
				}},
			)
			if err != nil {
				return nil, fmt.Errorf("failed to claim ticket: %w", err)
			}
			if result.ModifiedCount != 1 {
				// Another pass got here first; abort the transaction so
				// neither ticket is left half-claimed.
				return nil, ErrClaimConflict
			}
		}

		if _, err := s.chats.InsertOne(sc, chatSession); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		return nil, nil
	})
	return err
}

func (s *MongoStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.queue.DeleteMany(ctx, bson.M{
		"status":     models.TicketWaiting,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tickets: %w", err)
	}
	return result.DeletedCount, nil
}

// Sessions

func (s *MongoStore) Get(ctx context.Context, roomID string) (*models.ChatSession, error) {
	var chat models.ChatSession
	err := s.chats.FindOne(ctx, bson.M{"room_id": roomID}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &chat, nil
}

func (s *MongoStore) Complete(ctx context.Context, roomID, endedBy string, endedAt time.Time) (*models.ChatSession, error) {
	var chat models.ChatSession
	err := s.chats.FindOne(ctx, bson.M{"room_id": roomID, "status": models.SessionActive}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	duration := int64(endedAt.Sub(chat.CreatedAt).Seconds())

	result := s.chats.FindOneAndUpdate(ctx,
		bson.M{"room_id": roomID, "status": models.SessionActive},
		bson.M{"$set": bson.M{
			"status":   models.SessionCompleted,
			"ended_at": endedAt,
			"ended_by": endedBy,
			"duration": duration,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.ChatSession
	if err := result.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Lost the race with the other participant ending the chat.
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	return &updated, nil
}

func (s *MongoStore) IncrementMessages(ctx context.Context, roomID string) (int64, error) {
	result := s.chats.FindOneAndUpdate(ctx,
		bson.M{"room_id": roomID, "status": models.SessionActive},
		bson.M{"$inc": bson.M{"message_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.ChatSession
	if err := result.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to count message: %w", err)
	}
	return updated.MessageCount, nil
}

func (s *MongoStore) ActiveForUser(ctx context.Context, userID string) (*models.ChatSession, error) {
	var chat models.ChatSession
	err := s.chats.FindOne(ctx, bson.M{
		"participants": userID,
		"status":       models.SessionActive,
	}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return &chat, nil
}

func (s *MongoStore) ListForUser(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error) {
	// Requires the participants + created_at index for per-user listing.
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.chats.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.ChatSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// Stats

func (s *MongoStore) GetStats(ctx context.Context, userID string) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := s.stats.FindOne(ctx, bson.M{"_id": userID}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}

func (s *MongoStore) SaveStats(ctx context.Context, stats *models.UserStatistics) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.stats.ReplaceOne(ctx, bson.M{"_id": stats.UserID}, stats, opts)
	if err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}

// StatsView adapts MongoStore to the Stats interface; Get/Save clash with
// the Tickets and Sessions method sets, so statistics get their own facade.
type StatsView struct {
	store *MongoStore
}

// NewStatsView returns the Stats facade over store.
func NewStatsView(store *MongoStore) *StatsView {
	return &StatsView{store: store}
}

func (v *StatsView) Get(ctx context.Context, userID string) (*models.UserStatistics, error) {
	return v.store.GetStats(ctx, userID)
}

func (v *StatsView) Save(ctx context.Context, stats *models.UserStatistics) error {
	return v.store.SaveStats(ctx, stats)
}

// Prober

// Probe writes the sentinel document and reads it back, exercising both
// directions of the store connection.
func (s *MongoStore) Probe(ctx context.Context) error {
	now := time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := s.system.ReplaceOne(ctx,
		bson.M{"_id": sentinelID},
		bson.M{"_id": sentinelID, "timestamp": now, "status": "ok"},
		opts,
	)
	if err != nil {
		return fmt.Errorf("sentinel write failed: %w", err)
	}

	var doc bson.M
	if err := s.system.FindOne(ctx, bson.M{"_id": sentinelID}).Decode(&doc); err != nil {
		return fmt.Errorf("sentinel read failed: %w", err)
	}
	return nil
}
