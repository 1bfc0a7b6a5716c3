package enrich

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// LedgerEntry records when an enrichment source was committed.
type LedgerEntry struct {
	SourceID    string    `json:"source_id"`
	CommittedAt time.Time `json:"committed_at"`
}

// Ledger remembers the dedupe keys of external content already in the index
// so repeated enrichment for similar queries does not re-add the same page.
type Ledger interface {
	// Lookup returns the sources that remembered any of keys, without duplicates.
	Lookup(ctx context.Context, keys ...string) ([]string, error)
	// Remember binds keys to the committed source.
	Remember(ctx context.Context, sourceID string, keys ...string) error
	// Sources lists committed sources, oldest first.
	Sources(ctx context.Context) ([]LedgerEntry, error)
	// Forget drops a source and all of its keys.
	Forget(ctx context.Context, sourceID string) error
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	keys    map[string]string
	sources map[string]*memorySource
	now     func() time.Time
}

type memorySource struct {
	keys        []string
	committedAt time.Time
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		keys:    make(map[string]string),
		sources: make(map[string]*memorySource),
		now:     time.Now,
	}
}

// Lookup implements Ledger.
func (l *MemoryLedger) Lookup(ctx context.Context, keys ...string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var owners []string
	for _, key := range keys {
		id, ok := l.keys[key]
		if ok && !slices.Contains(owners, id) {
			owners = append(owners, id)
		}
	}
	return owners, nil
}

// Remember implements Ledger.
func (l *MemoryLedger) Remember(ctx context.Context, sourceID string, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.sources[sourceID]
	if !ok {
		src = &memorySource{committedAt: l.now()}
		l.sources[sourceID] = src
	}
	for _, key := range keys {
		l.keys[key] = sourceID
		src.keys = append(src.keys, key)
	}
	return nil
}

// Sources implements Ledger.
func (l *MemoryLedger) Sources(ctx context.Context) ([]LedgerEntry, error) {
	l.mu.RLock()
	out := make([]LedgerEntry, 0, len(l.sources))
	for id, src := range l.sources {
		out = append(out, LedgerEntry{SourceID: id, CommittedAt: src.committedAt})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CommittedAt.Equal(out[j].CommittedAt) {
			return out[i].CommittedAt.Before(out[j].CommittedAt)
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out, nil
}

// Forget implements Ledger.
func (l *MemoryLedger) Forget(ctx context.Context, sourceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.sources[sourceID]
	if !ok {
		return nil
	}
	for _, key := range src.keys {
		if l.keys[key] == sourceID {
			delete(l.keys, key)
		}
	}
	delete(l.sources, sourceID)
	return nil
}
