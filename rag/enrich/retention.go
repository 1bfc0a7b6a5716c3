package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/enrichrag/pkg/logging"
)

// SourceDeleter removes every chunk of a source from the index.
type SourceDeleter interface {
	DeleteSource(ctx context.Context, sourceID string) (int, error)
}

// Retention expires enriched content. Enriched chunks are permanent unless a
// Retention with a positive TTL is run against the ledger that recorded them.
type Retention struct {
	ledger Ledger
	index  SourceDeleter
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewRetention creates a sweeper that removes sources older than ttl.
func NewRetention(ledger Ledger, index SourceDeleter, ttl time.Duration) *Retention {
	return &Retention{
		ledger: ledger,
		index:  index,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.WithComponent("enrich_retention"),
	}
}

// Sweep deletes expired sources from the index and the ledger and reports
// how many sources were removed.
func (r *Retention) Sweep(ctx context.Context) (int, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	entries, err := r.ledger.Sources(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enriched sources: %w", err)
	}
	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for _, entry := range entries {
		if entry.CommittedAt.After(cutoff) {
			continue
		}
		chunks, err := r.index.DeleteSource(ctx, entry.SourceID)
		if err != nil {
			return removed, fmt.Errorf("delete enriched source %s: %w", entry.SourceID, err)
		}
		if err := r.ledger.Forget(ctx, entry.SourceID); err != nil {
			return removed, fmt.Errorf("forget enriched source %s: %w", entry.SourceID, err)
		}
		removed++
		r.logger.Info("expired enriched source", "source_id", entry.SourceID, "chunks", chunks)
	}
	return removed, nil
}

// Run sweeps on every interval until ctx is done.
func (r *Retention) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Warn("retention sweep failed", "error", err)
			}
		}
	}
}
