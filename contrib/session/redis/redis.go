package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/session"
)

// Store implements session.Store using Redis. Each record is a JSON string
// under Prefix+id; Prefix+"set" indexes the ids.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config holds Redis configuration for sessions.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// New creates a new Redis-based session store.
func New(config *Config) *Store {
	if config == nil {
		config = &Config{
			Addr:   "localhost:6379",
			Prefix: "enrichrag:session:",
			TTL:    24 * time.Hour,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Store{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

var _ session.Store = (*Store)(nil)

// Save persists a session record to Redis.
func (s *Store) Save(ctx context.Context, record *session.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("session record cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	key := s.sessionKey(record.ID)

	raw, err := json.Marshal(record.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, s.ttl)
		pipe.SAdd(ctx, s.setKey(), record.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load loads a session record from Redis.
func (s *Store) Load(ctx context.Context, id string) (*session.Record, error) {
	key := s.sessionKey(id)
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session %s: %w", id, errorskg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record session.Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}

	return record.Clone(), nil
}

// Delete removes a session record from Redis.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := s.sessionKey(id)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	setKey := s.setKey()
	if err := s.client.SRem(ctx, setKey, id).Err(); err != nil {
		return fmt.Errorf("failed to update session index: %w", err)
	}
	return nil
}

// List returns all session IDs. Ids whose record expired are pruned from
// the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	setKey := s.setKey()
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	live := ids[:0]
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, setKey, id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	setKey := s.setKey()
	count, err := s.client.SCard(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(count), nil
}

// Exists checks if a session exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	key := s.sessionKey(id)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists > 0, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks if Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) sessionKey(id string) string {
	return s.prefix + id
}

func (s *Store) setKey() string {
	return s.prefix + "set"
}
