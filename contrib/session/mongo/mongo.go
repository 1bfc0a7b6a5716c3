package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements session.Store using MongoDB, one document per session.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Config holds MongoDB connection configuration
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "enrichrag",
		Collection: "sessions",
	}
}

var _ session.Store = (*Store)(nil)

// New connects to MongoDB and ensures the update-time index exists.
func New(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &Store{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	_, err = store.collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, record *session.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("session record cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a record by id.
func (s *Store) Load(ctx context.Context, id string) (*session.Record, error) {
	var record session.Record
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", id, errorskg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if record.Turns == nil {
		record.Turns = []session.Turn{}
	}
	return &record, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns session ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"_id": 1})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(count), nil
}

// Exists checks if a session exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return count > 0, nil
}

// Clear removes every session; used by tests.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Ping checks if MongoDB connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
