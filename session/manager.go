package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/message"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
)

// Manager manages sessions on top of a Store.
type Manager struct {
	mu     sync.Mutex
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option is a function that configures a Manager.
type Option func(*Manager)

// WithStore sets the store for the manager.
func WithStore(s Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithLogger overrides the logger used by the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new session manager with the given options.
//
// Example:
//
//	mgr := session.NewManager(session.WithStore(redis.New(cfg)))
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		store:  NewInMemoryStore(),
		now:    time.Now,
		logger: logging.WithComponent("session_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session. An empty name becomes "Chat <date time>".
func (m *Manager) Create(ctx context.Context, name string) (*Record, error) {
	now := m.now().UTC()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Chat " + now.Format("2006-01-02 15:04")
	}
	record := &Record{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     []Turn{},
	}
	if err := m.store.Save(ctx, record); err != nil {
		m.logger.Error("create session failed", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Info("created session", "id", record.ID)
	return record, nil
}

// Get loads a session.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	return m.store.Load(ctx, id)
}

// List returns session summaries, most recently updated first.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		record, err := m.store.Load(ctx, id)
		if err != nil {
			if errors.Is(err, errorskg.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, record.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a session; unknown ids report errors.ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	exists, err := m.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session %s: %w", id, errorskg.ErrNotFound)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("deleted session", "id", id)
	return nil
}

// Append adds turns to a session and bumps its update time.
func (m *Manager) Append(ctx context.Context, id string, turns ...Turn) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	for _, turn := range turns {
		if turn.Timestamp.IsZero() {
			turn.Timestamp = now
		}
		record.Turns = append(record.Turns, turn)
	}
	record.UpdatedAt = now
	if err := m.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("append to session %s: %w", id, err)
	}
	return record, nil
}

// History returns the last limit turns; limit <= 0 returns all of them.
func (m *Manager) History(ctx context.Context, id string, limit int) ([]Turn, error) {
	record, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	turns := record.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// UserTurn records a question.
func UserTurn(query string) Turn {
	return Turn{Role: message.RoleUser, Content: query}
}

// AssistantTurn records an answer with its source names and confidence.
func AssistantTurn(answer string, sources []string, confidence float64, enriched bool) Turn {
	return Turn{
		Role:              message.RoleAssistant,
		Content:           answer,
		Sources:           sources,
		Confidence:        &confidence,
		EnrichmentApplied: enriched,
	}
}
