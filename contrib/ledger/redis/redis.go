package redis

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

// Ledger implements enrich.Ledger on Redis so dedupe state survives restarts
// and is shared between replicas.
//
// Layout under Prefix:
//
//	key:<dedupe key>   string, owning source id
//	source:<id>        set of dedupe keys
//	sources            sorted set of source ids scored by commit time (unix ms)
type Ledger struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Config holds Redis configuration for the ledger.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// DefaultConfig returns the local development configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "localhost:6379",
		Prefix: "enrichrag:ledger:",
	}
}

var _ enrich.Ledger = (*Ledger)(nil)

// New connects a ledger using config.
func New(config *Config) *Ledger {
	if config == nil {
		config = DefaultConfig()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewWithClient(client, config.Prefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string) *Ledger {
	if prefix == "" {
		prefix = "enrichrag:ledger:"
	}
	return &Ledger{client: client, prefix: prefix, now: time.Now}
}

// Lookup implements enrich.Ledger.
func (l *Ledger) Lookup(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = l.dedupeKey(key)
	}
	values, err := l.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	var owners []string
	for _, v := range values {
		id, ok := v.(string)
		if ok && id != "" && !slices.Contains(owners, id) {
			owners = append(owners, id)
		}
	}
	return owners, nil
}

// Remember implements enrich.Ledger. The commit time of an existing source is
// kept.
func (l *Ledger) Remember(ctx context.Context, sourceID string, keys ...string) error {
	score := float64(l.now().UnixMilli())
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Set(ctx, l.dedupeKey(key), sourceID, 0)
		}
		if len(keys) > 0 {
			members := make([]any, len(keys))
			for i, key := range keys {
				members[i] = key
			}
			pipe.SAdd(ctx, l.sourceKey(sourceID), members...)
		}
		pipe.ZAddNX(ctx, l.sourcesKey(), redis.Z{Score: score, Member: sourceID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger remember %s: %w", sourceID, err)
	}
	return nil
}

// Sources implements enrich.Ledger.
func (l *Ledger) Sources(ctx context.Context) ([]enrich.LedgerEntry, error) {
	entries, err := l.client.ZRangeWithScores(ctx, l.sourcesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger sources: %w", err)
	}
	out := make([]enrich.LedgerEntry, 0, len(entries))
	for _, z := range entries {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, enrich.LedgerEntry{
			SourceID:    id,
			CommittedAt: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	return out, nil
}

// Forget implements enrich.Ledger.
func (l *Ledger) Forget(ctx context.Context, sourceID string) error {
	keys, err := l.client.SMembers(ctx, l.sourceKey(sourceID)).Result()
	if err != nil {
		return fmt.Errorf("ledger forget %s: %w", sourceID, err)
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, l.dedupeKey(key))
		}
		pipe.Del(ctx, l.sourceKey(sourceID))
		pipe.ZRem(ctx, l.sourcesKey(), sourceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger forget %s: %w", sourceID, err)
	}
	return nil
}

// Ping checks if Redis connection is alive
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) dedupeKey(key string) string { return l.prefix + "key:" + key }
func (l *Ledger) sourceKey(id string) string   { return l.prefix + "source:" + id }
func (l *Ledger) sourcesKey() string           { return l.prefix + "sources" }
