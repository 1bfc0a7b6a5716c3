package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/vector"
)

// Gateway wraps a provider embedder with bounded retries. Embedding is
// treated as a pure function of its input, so retrying is always safe.
type Gateway struct {
	base     vector.Embedder
	maxTries uint
	initial  time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
}

// Option customises the gateway.
type Option func(*Gateway)

// WithMaxTries bounds attempts per call, including the first (default 3).
func WithMaxTries(n uint) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTries = n
		}
	}
}

// WithBackoff sets the initial and maximum retry delay.
func WithBackoff(initial, max time.Duration) Option {
	return func(g *Gateway) {
		if initial > 0 {
			g.initial = initial
		}
		if max > 0 {
			g.maxDelay = max
		}
	}
}

// NewGateway creates a retrying embedding gateway.
func NewGateway(base vector.Embedder, opts ...Option) *Gateway {
	g := &Gateway{
		base:     base,
		maxTries: 3,
		initial:  200 * time.Millisecond,
		maxDelay: 2 * time.Second,
		logger:   logging.WithComponent("embedding_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimension reports the provider's vector size.
func (g *Gateway) Dimension() int {
	return g.base.Dimension()
}

// EmbedQuery embeds a single query string.
func (g *Gateway) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := g.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedChunks returns copies of chunks with their vectors filled in.
func (g *Gateway) EmbedChunks(ctx context.Context, chunks []document.Chunk) ([]document.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := g.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]document.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.Clone()
		out[i].Vector = vecs[i]
	}
	return out, nil
}

// EmbedTexts embeds a batch, retrying transient provider failures.
// Failures wrap errors.ErrEmbedding.
func (g *Gateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if g == nil || g.base == nil {
		return nil, fmt.Errorf("embedder not configured: %w", errorskg.ErrEmbedding)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.initial
	policy.MaxInterval = g.maxDelay

	attempt := 0
	vecs, err := backoff.Retry(ctx, func() ([][]float32, error) {
		attempt++
		out, err := g.base.EmbedBatch(ctx, texts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errorskg.ErrInvalidInput) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(out) != len(texts) {
			return nil, backoff.Permanent(fmt.Errorf("expected %d vectors, got %d", len(texts), len(out)))
		}
		return out, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(g.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			g.logger.Warn("embedding attempt failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), errors.Join(errorskg.ErrEmbedding, err))
	}
	return vecs, nil
}
