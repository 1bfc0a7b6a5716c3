// Package rating records user feedback on answers and summarises it.
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
)

const (
	// statsWindow bounds how many recent ratings feed statistics and low-rated listings.
	statsWindow = 1000
	recentCount = 10
)

// Rating is one piece of user feedback.
type Rating struct {
	ID        string    `json:"rating_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Score     int       `json:"rating"`
	Feedback  string    `json:"feedback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Statistics summarises recent ratings.
type Statistics struct {
	Total        int         `json:"total_ratings"`
	Average      float64     `json:"average_rating"`
	Distribution map[int]int `json:"rating_distribution"`
	Recent       []Rating    `json:"recent_ratings"`
}

// Store persists ratings.
type Store interface {
	Save(ctx context.Context, r Rating) error
	// Recent returns up to limit ratings, most recent first.
	Recent(ctx context.Context, limit int) ([]Rating, error)
}

// Service validates and records ratings.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a rating service; a nil store keeps ratings in memory.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		store = NewInMemoryStore()
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logging.WithComponent("rating"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save records a rating between 1 and 5 and returns its id.
func (s *Service) Save(ctx context.Context, query, answer string, score int, feedback string) (string, error) {
	if score < 1 || score > 5 {
		return "", fmt.Errorf("rating must be between 1 and 5, got %d: %w", score, errorskg.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	r := Rating{
		ID:        uuid.NewString(),
		Query:     query,
		Answer:    answer,
		Score:     score,
		Feedback:  strings.TrimSpace(feedback),
		Timestamp: s.now().UTC(),
	}
	if err := s.store.Save(ctx, r); err != nil {
		s.logger.Error("save rating failed", "error", err)
		return "", fmt.Errorf("save rating: %w", err)
	}
	s.logger.Info("saved rating", "id", r.ID, "score", score)
	return r.ID, nil
}

// Recent returns the latest ratings, most recent first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Rating, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.Recent(ctx, limit)
}

// Statistics summarises the most recent ratings. The average is rounded to
// two decimals and the distribution always carries the keys 1 to 5.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	ratings, err := s.store.Recent(ctx, statsWindow)
	if err != nil {
		return Statistics{}, err
	}
	out := Statistics{
		Total:        len(ratings),
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Recent:       []Rating{},
	}
	if len(ratings) == 0 {
		return out, nil
	}

	scores := make(stats.Float64Data, len(ratings))
	for i, r := range ratings {
		scores[i] = float64(r.Score)
		out.Distribution[r.Score]++
	}
	mean, err := scores.Mean()
	if err != nil {
		return Statistics{}, fmt.Errorf("rating average: %w", err)
	}
	if out.Average, err = stats.Round(mean, 2); err != nil {
		return Statistics{}, fmt.Errorf("rating average: %w", err)
	}
	n := recentCount
	if len(ratings) < n {
		n = len(ratings)
	}
	out.Recent = ratings[:n]
	return out, nil
}

// LowRated returns recent ratings at or below threshold, most recent first.
// Zero arguments use threshold 3 and limit 20.
func (s *Service) LowRated(ctx context.Context, threshold, limit int) ([]Rating, error) {
	if threshold <= 0 {
		threshold = 3
	}
	if limit <= 0 {
		limit = 20
	}
	ratings, err := s.store.Recent(ctx, statsWindow)
	if err != nil {
		return nil, err
	}
	out := make([]Rating, 0)
	for _, r := range ratings {
		if r.Score > threshold {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// InMemoryStore keeps ratings in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	ratings []Rating
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, r Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings = append(s.ratings, r)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.ratings)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Rating, 0, n)
	for i := len(s.ratings) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.ratings[i])
	}
	return out, nil
}
