package enrich

import (
	"context"
	"log/slog"
	"math"

	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/pkg/telemetry"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// State is a step of the per-query enrichment state machine.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateFetching   State = "fetching"
	StateCommitting State = "committing"
	StateCompleted  State = "completed"
	StateNoOp       State = "noop"
)

// Gap describes an assessed answer the orchestrator may try to improve.
type Gap struct {
	Query      string
	Confidence float64
	IsComplete bool
	Missing    []string
}

// Failure records one connector that contributed nothing.
type Failure struct {
	Source   string `json:"source"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// Committed describes one external source written to the index.
type Committed struct {
	Source   string `json:"source"`
	Label    string `json:"label"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	SourceID string `json:"source_id"`
}

// Outcome reports a single enrichment run.
type Outcome struct {
	State     State       `json:"state"`
	Sources   []string    `json:"sources"` // labels of connectors whose content was committed
	Committed int         `json:"committed"`
	Skipped   int         `json:"skipped"` // duplicates dropped during commit
	Attempts  int         `json:"attempts"`
	Failures  []Failure   `json:"failures,omitempty"`
	Items     []Committed `json:"items,omitempty"`
}

// Applied reports whether the index changed.
func (o Outcome) Applied() bool {
	return o.State == StateCompleted
}

// Index is the part of the vector index used for committing. HasChunk lets
// the dedupe ledger confirm that a remembered source is still indexed.
type Index interface {
	Upsert(ctx context.Context, chunks []document.Chunk) error
	HasChunk(ctx context.Context, chunkID string) (bool, error)
}

// ChunkEmbedder attaches vectors to chunks.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []document.Chunk) ([]document.Chunk, error)
}

// Orchestrator runs Selecting, Fetching and Committing for one query at a time.
// It holds no per-query state; concurrent calls share only the courtesy limiter
// and the ledger.
type Orchestrator struct {
	registry *Registry
	index    Index
	embedder ChunkEmbedder
	limiter  *rate.Limiter
	cfg      Config
	logger   *slog.Logger
}

// NewOrchestrator wires the registry to the index it enriches.
func NewOrchestrator(registry *Registry, index Index, embedder ChunkEmbedder, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ledger == nil {
		cfg.ledger = NewMemoryLedger()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	limit := rate.Inf
	if cfg.CourtesyDelay > 0 {
		limit = rate.Every(cfg.CourtesyDelay)
	}
	return &Orchestrator{
		registry: registry,
		index:    index,
		embedder: embedder,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   logging.WithComponent("enrich"),
	}
}

// Registry returns the connector registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Ledger returns the dedupe ledger.
func (o *Orchestrator) Ledger() Ledger {
	return o.cfg.ledger
}

// ShouldEnrich reports whether an answer is weak enough to trigger enrichment:
// it must be incomplete and either below the threshold or missing information.
func (o *Orchestrator) ShouldEnrich(g Gap) bool {
	if g.IsComplete {
		return false
	}
	conf := g.Confidence
	if math.IsNaN(conf) {
		conf = 0
	}
	return conf < o.cfg.Threshold || len(g.Missing) > 0
}

// Enrich runs one enrichment cycle. Connector failures and empty results end
// in StateNoOp, which is not an error; the error is non-nil only when ctx
// ends before the cycle finishes.
func (o *Orchestrator) Enrich(ctx context.Context, g Gap) (out Outcome, err error) {
	ctx, span := telemetry.Start(ctx, "enrich", attribute.String("query", trimForLog(g.Query, 120)))
	defer func() {
		span.SetAttributes(
			attribute.String("state", string(out.State)),
			attribute.Int("committed", out.Committed),
			attribute.Int("attempts", out.Attempts),
		)
		telemetry.End(span, err)
	}()

	out.State = StateSelecting
	selected := Select(o.registry.Enabled(), g.Query, g.Missing, o.cfg.MaxSources)
	if len(selected) == 0 {
		o.logger.Info("no connectors selected", "query", trimForLog(g.Query, 80))
		out.State = StateNoOp
		return out, nil
	}

	out.State = StateFetching
	searchText := SearchText(g.Query, g.Missing)
	fetched := o.fetch(ctx, selected, searchText)
	var results []Result
	for _, f := range fetched {
		out.Attempts += f.attempts
		if f.err != nil {
			out.Failures = append(out.Failures, Failure{Source: f.source, Error: f.err.Error(), Attempts: f.attempts})
			o.logger.Warn("connector failed", "connector", f.source, "attempts", f.attempts, "error", f.err)
			continue
		}
		results = append(results, f.results...)
	}
	if err := ctx.Err(); err != nil {
		out.State = StateNoOp
		return out, err
	}
	if len(results) == 0 {
		out.State = StateNoOp
		o.logger.Info("enrichment produced no results", "attempts", out.Attempts, "failures", len(out.Failures))
		return out, nil
	}

	out.State = StateCommitting
	items, skipped, err := o.commit(ctx, g, results)
	out.Skipped = skipped
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.State = StateNoOp
			return out, ctxErr
		}
		out.Failures = append(out.Failures, Failure{Source: "commit", Error: err.Error()})
		o.logger.Error("enrichment commit failed", "error", err)
		out.State = StateNoOp
		return out, nil
	}
	if len(items) == 0 {
		out.State = StateNoOp
		o.logger.Info("enrichment results were all duplicates", "skipped", skipped)
		return out, nil
	}

	seen := make(map[string]struct{})
	for _, item := range items {
		if _, ok := seen[item.Label]; !ok {
			seen[item.Label] = struct{}{}
			out.Sources = append(out.Sources, item.Label)
		}
	}
	out.Items = items
	out.Committed = len(items)
	out.State = StateCompleted
	o.logger.Info("enrichment completed", "sources", out.Sources, "committed", out.Committed, "attempts", out.Attempts)
	return out, nil
}

func trimForLog(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
