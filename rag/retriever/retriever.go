package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/chunking"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/embedder"
	"github.com/sweetpotato0/enrichrag/rag/preprocess"
	"github.com/sweetpotato0/enrichrag/vector"
	"golang.org/x/sync/errgroup"
)

// Match is one retrieved chunk with its similarity normalised into [0,1].
type Match struct {
	Chunk document.Chunk `json:"chunk"`
	Score float32        `json:"score"`
}

// Config controls retrieval behaviour.
type Config struct {
	TopK           int
	EmbedBatchSize int
	EmbedWorkers   int
}

// Option customizes retriever config.
type Option func(*Config)

// WithTopK sets the number of neighbours fetched when a call passes k <= 0.
func WithTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.TopK = k
		}
	}
}

// WithEmbedBatching sets how ingestion batches and parallelises embedding calls.
func WithEmbedBatching(batchSize, workers int) Option {
	return func(cfg *Config) {
		if batchSize > 0 {
			cfg.EmbedBatchSize = batchSize
		}
		if workers > 0 {
			cfg.EmbedWorkers = workers
		}
	}
}

// Retriever runs the vector retrieval step and owns document ingestion into
// the same index.
type Retriever struct {
	store    vector.Store
	embedder *embedder.Gateway
	chunker  chunking.Chunker
	cfg      Config
	logger   *slog.Logger
}

// New creates a retriever. A nil chunker falls back to the default SimpleChunker.
func New(store vector.Store, emb *embedder.Gateway, chunker chunking.Chunker, opts ...Option) *Retriever {
	cfg := Config{
		TopK:           5,
		EmbedBatchSize: 32,
		EmbedWorkers:   4,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if chunker == nil {
		chunker = chunking.NewSimpleChunker()
	}
	return &Retriever{
		store:    store,
		embedder: emb,
		chunker:  chunker,
		cfg:      cfg,
		logger:   logging.WithComponent("retriever"),
	}
}

// Store exposes the underlying index for components that upsert directly.
func (r *Retriever) Store() vector.Store {
	return r.store
}

// Embedder exposes the embedding gateway.
func (r *Retriever) Embedder() *embedder.Gateway {
	return r.embedder
}

// Retrieve embeds the query and returns up to k matches ordered by score.
// An empty index yields errors.ErrNoDocuments rather than an empty list.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}
	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, wrapIndex("count index", err)
	}
	if count == 0 {
		return nil, errorskg.ErrNoDocuments
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, wrapIndex("vector search", err)
	}
	if len(hits) == 0 {
		return nil, errorskg.ErrNoDocuments
	}

	metric := r.store.Metric()
	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Embedding == nil {
			continue
		}
		matches = append(matches, Match{
			Chunk: document.FromEmbedding(hit.Embedding),
			Score: vector.Similarity(metric, hit.Raw),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	r.logger.Debug("retrieval completed", "query", trimForLog(query, 80), "hits", len(matches), "metric", metric)
	return matches, nil
}

// IndexDocuments cleans, chunks, embeds and upserts documents. Re-indexing a
// document ID replaces its previous chunks. Returns the number of chunks written.
func (r *Retriever) IndexDocuments(ctx context.Context, docs ...document.Document) (int, error) {
	total := 0
	for _, doc := range docs {
		document.EnsureDocumentID(&doc)
		content := doc.Content
		if preprocess.LooksLikeHTML(content) {
			text, err := preprocess.HTMLToText(content)
			if err != nil {
				return total, fmt.Errorf("extract html for %s: %w", doc.ID, err)
			}
			content = text
		}
		doc.Content = preprocess.Preprocess(content)
		if strings.TrimSpace(doc.Content) == "" {
			return total, fmt.Errorf("document %s has no content: %w", doc.ID, errorskg.ErrInvalidInput)
		}

		chunks, err := r.chunker.Chunk(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}
		embedded, err := r.embedChunks(ctx, chunks)
		if err != nil {
			return total, fmt.Errorf("embed document %s: %w", doc.ID, err)
		}

		if _, err := r.store.DeleteSource(ctx, doc.ID); err != nil {
			return total, wrapIndex("replace document "+doc.ID, err)
		}
		if err := r.Upsert(ctx, embedded); err != nil {
			return total, err
		}
		total += len(embedded)
		r.logger.Info("document indexed", "doc_id", doc.ID, "chunks", len(embedded))
	}
	return total, nil
}

// Upsert writes already embedded chunks into the index.
func (r *Retriever) Upsert(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]*vector.Embedding, len(chunks))
	for i, c := range chunks {
		records[i] = c.Embedding()
	}
	if err := r.store.Upsert(ctx, records...); err != nil {
		return wrapIndex("upsert chunks", err)
	}
	return nil
}

// DeleteSource removes all chunks owned by a document or enrichment source.
func (r *Retriever) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	n, err := r.store.DeleteSource(ctx, sourceID)
	if err != nil {
		return 0, wrapIndex("delete source "+sourceID, err)
	}
	return n, nil
}

// HasChunk reports whether a chunk with id is indexed.
func (r *Retriever) HasChunk(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errorskg.ErrNotFound):
		return false, nil
	default:
		return false, wrapIndex("get chunk "+id, err)
	}
}

// Count returns number of chunks indexed.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0, wrapIndex("count index", err)
	}
	return n, nil
}

func (r *Retriever) embedChunks(ctx context.Context, chunks []document.Chunk) ([]document.Chunk, error) {
	out := make([]document.Chunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.EmbedWorkers)
	for start := 0; start < len(chunks); start += r.cfg.EmbedBatchSize {
		end := min(start+r.cfg.EmbedBatchSize, len(chunks))
		g.Go(func() error {
			batch, err := r.embedder.EmbedChunks(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func wrapIndex(op string, err error) error {
	if errors.Is(err, errorskg.ErrIndexUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(errorskg.ErrIndexUnavailable, err))
}

func trimForLog(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if limit <= 0 || len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
