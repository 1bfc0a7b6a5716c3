package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/preprocess"
	"github.com/sweetpotato0/enrichrag/rag/tokenizer"
	"golang.org/x/sync/errgroup"
)

// Metadata keys stamped on enriched chunks.
const (
	MetaEnriched      = "enriched"
	MetaOriginalQuery = "original_query"
	MetaEnrichedAt    = "enriched_at"
)

type pending struct {
	chunk document.Chunk
	keys  []string
	item  Committed
}

// commit normalises results into external chunks, drops duplicates, embeds
// and upserts them, then records them in the ledger.
func (o *Orchestrator) commit(ctx context.Context, g Gap, results []Result) ([]Committed, int, error) {
	now := o.cfg.now().UTC()
	batch := make(map[string]struct{})
	var (
		queue   []pending
		skipped int
	)
	for _, r := range results {
		content := preprocess.Preprocess(r.Content)
		if content == "" {
			skipped++
			continue
		}
		content, _ = tokenizer.Truncate(o.cfg.tokenizer, content, o.cfg.MaxContentLength)

		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = "Untitled"
		}
		keys := DedupeKeys(title, content)
		if dup := o.isDuplicate(ctx, batch, keys); dup {
			skipped++
			continue
		}
		for _, k := range keys {
			batch[k] = struct{}{}
		}

		label := o.registry.Label(r.Source)
		sourceID := SourceID(r.Source, title)
		meta := make(map[string]any, len(r.Metadata)+7)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta[document.MetaSource] = r.Source
		meta[document.MetaTitle] = title
		meta[document.MetaURL] = r.URL
		meta[MetaEnriched] = true
		meta[MetaOriginalQuery] = g.Query
		meta[MetaEnrichedAt] = now.Format(time.RFC3339)

		queue = append(queue, pending{
			chunk: document.Chunk{
				ID:         ChunkID(sourceID),
				SourceID:   sourceID,
				SourceName: label + ": " + title,
				Kind:       document.KindExternal,
				Content:    content,
				Ordinal:    1,
				Metadata:   meta,
			},
			keys: keys,
			item: Committed{Source: r.Source, Label: label, Title: title, URL: r.URL, SourceID: sourceID},
		})
	}
	if len(queue) == 0 {
		return nil, skipped, nil
	}

	chunks := make([]document.Chunk, len(queue))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.EmbedWorkers)
	for i := range queue {
		eg.Go(func() error {
			embedded, err := o.embedder.EmbedChunks(egctx, []document.Chunk{queue[i].chunk})
			if err != nil {
				return fmt.Errorf("embed %s: %w", queue[i].item.SourceID, err)
			}
			chunks[i] = embedded[0]
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, skipped, err
	}
	if err := o.index.Upsert(ctx, chunks); err != nil {
		return nil, skipped, fmt.Errorf("upsert enriched chunks: %w", err)
	}

	items := make([]Committed, 0, len(queue))
	for _, p := range queue {
		if err := o.cfg.ledger.Remember(ctx, p.item.SourceID, p.keys...); err != nil {
			o.logger.Warn("ledger remember failed", "source_id", p.item.SourceID, "error", err)
		}
		items = append(items, p.item)
	}
	return items, skipped, nil
}

// isDuplicate reports whether keys match this batch or a source that is still
// indexed. Ledger entries whose chunk has left the index (deleted through the
// API, or lost with a non-persistent store) are forgotten.
func (o *Orchestrator) isDuplicate(ctx context.Context, batch map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := batch[k]; ok {
			return true
		}
	}
	owners, err := o.cfg.ledger.Lookup(ctx, keys...)
	if err != nil {
		o.logger.Warn("ledger lookup failed", "error", err)
		return false
	}
	for _, sourceID := range owners {
		indexed, err := o.index.HasChunk(ctx, ChunkID(sourceID))
		if err != nil {
			o.logger.Warn("index lookup failed, treating as duplicate", "source_id", sourceID, "error", err)
			return true
		}
		if indexed {
			return true
		}
		if err := o.cfg.ledger.Forget(ctx, sourceID); err != nil {
			o.logger.Warn("ledger forget failed", "source_id", sourceID, "error", err)
		}
		o.logger.Debug("forgot stale ledger entry", "source_id", sourceID)
	}
	return false
}

// DedupeKeys returns the content-hash and normalised-title keys of a result.
func DedupeKeys(title, content string) []string {
	sum := sha256.Sum256([]byte(content))
	keys := []string{"content:" + hex.EncodeToString(sum[:])}
	if t := NormalizeTitle(title); t != "" {
		keys = append(keys, "title:"+t)
	}
	return keys
}

// NormalizeTitle lowercases a title and reduces it to letters and digits
// separated by single spaces, so "Paid Time-Off (PTO)" and "paid time off pto"
// collide.
func NormalizeTitle(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// ChunkID is the id of the single chunk committed for an enriched source.
func ChunkID(sourceID string) string {
	return sourceID + "_chunk_1"
}

// SourceID derives the stable document id of an enriched source.
func SourceID(source, title string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title)))
	return fmt.Sprintf("enriched_%s_%s", source, hex.EncodeToString(sum[:6]))
}
