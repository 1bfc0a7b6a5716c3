// Package answer turns a question into a self-assessed, source-attributed
// answer. A run retrieves matches, filters them for relevance, generates an
// AssessedAnswer and, when that answer is weak and enrichment is allowed,
// enriches the index once and answers again.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/graph"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/pkg/telemetry"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
	"go.opentelemetry.io/otel/attribute"
)

const stateKey = "answer_state"

// Retriever returns scored matches, or errors.ErrNoDocuments for an empty index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retriever.Match, error)
}

// Enricher improves the index for a weak answer. *enrich.Orchestrator implements it.
type Enricher interface {
	ShouldEnrich(g enrich.Gap) bool
	Enrich(ctx context.Context, g enrich.Gap) (enrich.Outcome, error)
}

// Pipeline is safe for concurrent use; every call runs on its own state.
type Pipeline struct {
	retriever Retriever
	filter    *relevanceFilter
	generator *generator
	cfg       *Config
	graph     *graph.Graph
	logger    *slog.Logger
}

// pass is one retrieve, filter and generate round.
type pass struct {
	matches     []retriever.Match
	assessed    AssessedAnswer
	noDocuments bool // empty index, or every match judged off-topic
}

type runState struct {
	ctx       context.Context // carries the global deadline
	query     string
	opts      RunOptions
	current   *pass
	first     *pass
	second    *pass
	outcome   *enrich.Outcome
	abandoned bool
	response  *FinalResponse
}

// New builds the pipeline around a retriever and a generation client.
func New(r Retriever, client llm.Client, opts ...Option) (*Pipeline, error) {
	if r == nil {
		return nil, fmt.Errorf("retriever is required: %w", errorskg.ErrInvalidInput)
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required: %w", errorskg.ErrInvalidInput)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	p := &Pipeline{
		retriever: r,
		cfg:       cfg,
		logger:    logging.WithComponent("answer_pipeline"),
	}
	p.filter = &relevanceFilter{
		llm:     client,
		prompt:  cfg.FilterPrompt,
		timeout: p.withGenerationTimeout,
		logger:  p.logger.With("stage", "filter"),
	}
	p.generator = &generator{
		llm:         client,
		prompt:      cfg.GeneratorPrompt,
		strictRetry: cfg.StrictRetryPrompt,
		maxTokens:   cfg.MaxTokens,
		timeout:     p.withGenerationTimeout,
		logger:      p.logger.With("stage", "generate"),
	}

	g, err := graph.NewBuilder().
		AddNode("retrieve", graph.NodeTypeStart, p.retrieveNode).
		AddNode("filter", graph.NodeTypeStep, p.filterNode).
		AddNode("generate", graph.NodeTypeStep, p.generateNode).
		AddConditionNode("assess", p.assessGate, map[string]string{
			"enrich":   "enrich",
			"assemble": "assemble",
		}).
		AddNode("enrich", graph.NodeTypeStep, p.enrichNode).
		AddConditionNode("after_enrich", p.afterEnrichGate, map[string]string{
			"regenerate": "retrieve",
			"assemble":   "assemble",
		}).
		AddNode("assemble", graph.NodeTypeEnd, p.assembleNode).
		AddEdge("retrieve", "filter").
		AddEdge("filter", "generate").
		AddEdge("generate", "assess").
		AddEdge("enrich", "after_enrich").
		SetStart("retrieve").
		SetEnd("assemble").
		SetMaxVisits(cfg.GraphMaxVisits).
		OnTransition(func(ctx context.Context, from, to string) {
			p.logger.Debug("pipeline transition", "from", from, "to", to)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build answer graph: %w", err)
	}
	p.graph = g

	p.logger.Info("answer pipeline initialised",
		"top_k", cfg.TopK,
		"deadline", cfg.Deadline,
		"filter", cfg.EnableFilter,
		"enrichment", cfg.enricher != nil,
	)
	return p, nil
}

// Answer runs the pipeline with the configured retrieval depth.
func (p *Pipeline) Answer(ctx context.Context, query string, allowEnrichment bool) (*FinalResponse, error) {
	return p.AnswerWith(ctx, query, RunOptions{AllowEnrichment: allowEnrichment})
}

// AnswerWith runs the pipeline with per-call overrides. Errors are returned
// only when the first answer cannot be produced because the index, the
// embedding provider or the generation provider failed. A global deadline
// that expires first yields a zero-confidence response instead.
func (p *Pipeline) AnswerWith(ctx context.Context, query string, opts RunOptions) (resp *FinalResponse, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		opts.TopK = p.cfg.TopK
	}

	ctx, span := telemetry.Start(ctx, "answer",
		attribute.String("query", trimForLog(query, 120)),
		attribute.Int("top_k", opts.TopK),
		attribute.Bool("allow_enrichment", opts.AllowEnrichment),
	)
	defer func() { telemetry.End(span, err) }()

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()

	p.logger.Info("answer started", "query", trimForLog(query, 120), "top_k", opts.TopK, "allow_enrichment", opts.AllowEnrichment)
	st := &runState{ctx: runCtx, query: query, opts: opts}
	if _, err := p.graph.Execute(ctx, graph.State{stateKey: st}); err != nil {
		if ctx.Err() != nil || !errors.Is(runCtx.Err(), context.DeadlineExceeded) || st.first != nil {
			p.logger.Error("answer failed", "query", trimForLog(query, 120), "error", err)
			return nil, err
		}
		p.logger.Warn("pipeline deadline exceeded before a first answer",
			"query", trimForLog(query, 120),
			"deadline", p.cfg.Deadline,
			"error", err,
		)
		st.response = p.timedOut(st)
	}

	resp = st.response
	span.SetAttributes(
		attribute.Float64("confidence", resp.Confidence),
		attribute.Bool("complete", resp.IsComplete),
		attribute.Bool("enrichment_applied", resp.EnrichmentApplied),
		attribute.Int("sources", len(resp.Sources)),
	)
	p.logger.Info("answer completed",
		"query", trimForLog(query, 120),
		"confidence", resp.Confidence,
		"complete", resp.IsComplete,
		"sources", len(resp.Sources),
		"enrichment_applied", resp.EnrichmentApplied,
	)
	return resp, nil
}

func (p *Pipeline) retrieveNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	cur := &pass{}
	st.current = cur

	ctx, span := telemetry.Start(st.ctx, "answer.retrieve", attribute.Bool("regenerate", st.first != nil))
	matches, err := p.retriever.Retrieve(ctx, st.query, st.opts.TopK)
	telemetry.End(span, ignoreNoDocuments(err))
	switch {
	case errors.Is(err, errorskg.ErrNoDocuments):
		cur.noDocuments = true
	case err != nil:
		return state, st.fail(p.logger, "retrieve", err)
	default:
		cur.matches = matches
	}
	return state, nil
}

func (p *Pipeline) filterNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	cur := st.current
	if st.abandoned || cur.noDocuments || !p.cfg.EnableFilter {
		return state, nil
	}

	ctx, span := telemetry.Start(st.ctx, "answer.filter", attribute.Int("matches", len(cur.matches)))
	kept, excluded, err := p.filter.Filter(ctx, st.query, cur.matches)
	telemetry.End(span, err)
	if err != nil {
		return state, st.fail(p.logger, "filter", err)
	}
	if excluded {
		cur.noDocuments = true
		cur.matches = nil
		return state, nil
	}
	cur.matches = kept
	return state, nil
}

func (p *Pipeline) generateNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	cur := st.current
	if st.abandoned {
		return state, nil
	}

	if cur.noDocuments {
		cur.assessed = noDocumentsAssessment(p.cfg.NoDocumentsAnswer)
	} else {
		ctx, span := telemetry.Start(st.ctx, "answer.generate", attribute.Int("matches", len(cur.matches)))
		assessed, err := p.generator.Generate(ctx, st.query, cur.matches)
		telemetry.End(span, err)
		if err != nil {
			return state, st.fail(p.logger, "generate", err)
		}
		cur.assessed = assessed
	}

	if st.first == nil {
		st.first = cur
	} else {
		st.second = cur
	}
	return state, nil
}

func (p *Pipeline) assessGate(_ context.Context, state graph.State) (string, error) {
	st, err := getState(state)
	if err != nil {
		return "", err
	}
	if st.abandoned || st.second != nil || st.outcome != nil {
		return "assemble", nil
	}
	if !st.opts.AllowEnrichment || p.cfg.enricher == nil {
		return "assemble", nil
	}
	if !p.cfg.enricher.ShouldEnrich(gapOf(st.query, st.first)) {
		return "assemble", nil
	}
	return "enrich", nil
}

func (p *Pipeline) enrichNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	outcome, err := p.cfg.enricher.Enrich(st.ctx, gapOf(st.query, st.first))
	st.outcome = &outcome
	if err != nil {
		st.abandoned = true
		p.logger.Warn("enrichment abandoned, keeping first answer", "query", trimForLog(st.query, 80), "error", err)
	}
	return state, nil
}

func (p *Pipeline) afterEnrichGate(_ context.Context, state graph.State) (string, error) {
	st, err := getState(state)
	if err != nil {
		return "", err
	}
	if st.abandoned || st.outcome == nil || !st.outcome.Applied() {
		return "assemble", nil
	}
	return "regenerate", nil
}

func (p *Pipeline) assembleNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	final := st.first
	applied := false
	if st.second != nil && !st.abandoned {
		final = st.second
		applied = true
	}
	if final == nil {
		return state, fmt.Errorf("no answer produced")
	}
	// fetched items are only suggested when the answer actually used them
	var fetched *enrich.Outcome
	if applied {
		fetched = st.outcome
	}

	resp := &FinalResponse{
		Query:              st.query,
		Answer:             final.assessed.Answer,
		Confidence:         final.assessed.Confidence,
		IsComplete:         final.assessed.IsComplete,
		Sources:            attributeSources(final.assessed, final.matches, p.cfg.ExcerptLength),
		MissingInformation: final.assessed.MissingInformation,
		Reasoning:          final.assessed.Reasoning,
		EnrichmentApplied:  applied,
		EnrichmentSources:  []string{},
		Suggestions:        suggest(st.query, final.assessed, fetched, final.noDocuments, st.opts.AllowEnrichment),
		Enrichment:         st.outcome,
		Timestamp:          p.cfg.now().UTC(),
	}
	if applied {
		resp.EnrichmentSources = append(resp.EnrichmentSources, st.outcome.Sources...)
	}
	st.response = resp
	return state, nil
}

// timedOut is the response for a run whose global deadline expired before
// any answer existed.
func (p *Pipeline) timedOut(st *runState) *FinalResponse {
	return &FinalResponse{
		Query:              st.query,
		Answer:             timeoutAnswer,
		Confidence:         0,
		IsComplete:         false,
		Sources:            []SourceReference{},
		MissingInformation: []string{missingTimeout},
		EnrichmentApplied:  false,
		EnrichmentSources:  []string{},
		Suggestions:        []Suggestion{},
		Enrichment:         st.outcome,
		Timestamp:          p.cfg.now().UTC(),
	}
}

// fail decides whether a stage error ends the run. The first pass has no
// answer to fall back on, so its errors propagate; on the second pass the run
// is abandoned and the first answer is kept.
func (st *runState) fail(logger *slog.Logger, stage string, err error) error {
	if st.first == nil {
		return err
	}
	st.abandoned = true
	logger.Warn("regeneration abandoned, keeping first answer", "stage", stage, "error", err)
	return nil
}

func gapOf(query string, p *pass) enrich.Gap {
	g := enrich.Gap{
		Query:      query,
		Confidence: p.assessed.Confidence,
		IsComplete: p.assessed.IsComplete,
		Missing:    p.assessed.MissingInformation,
	}
	if p.noDocuments {
		// the fixed no-documents entry says nothing about the topic
		g.Missing = nil
	}
	return g
}

func ignoreNoDocuments(err error) error {
	if errors.Is(err, errorskg.ErrNoDocuments) {
		return nil
	}
	return err
}

func (p *Pipeline) withGenerationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.GenerationTimeout)
}

func getState(state graph.State) (*runState, error) {
	raw, ok := state[stateKey]
	if !ok {
		return nil, fmt.Errorf("answer state missing in graph")
	}
	st, ok := raw.(*runState)
	if !ok {
		return nil, fmt.Errorf("invalid answer state type")
	}
	return st, nil
}
