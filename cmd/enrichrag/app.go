package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/sweetpotato0/enrichrag/config"
	"github.com/sweetpotato0/enrichrag/contrib/connector"
	"github.com/sweetpotato0/enrichrag/contrib/connector/arxiv"
	"github.com/sweetpotato0/enrichrag/contrib/connector/pubmed"
	"github.com/sweetpotato0/enrichrag/contrib/connector/websearch"
	"github.com/sweetpotato0/enrichrag/contrib/connector/wikipedia"
	openaiembed "github.com/sweetpotato0/enrichrag/contrib/embedder/openai"
	ledgerredis "github.com/sweetpotato0/enrichrag/contrib/ledger/redis"
	"github.com/sweetpotato0/enrichrag/contrib/provider/claude"
	"github.com/sweetpotato0/enrichrag/contrib/provider/gemini"
	"github.com/sweetpotato0/enrichrag/contrib/provider/groq"
	"github.com/sweetpotato0/enrichrag/contrib/provider/openai"
	ratingsql "github.com/sweetpotato0/enrichrag/contrib/rating/sql"
	sessionmongo "github.com/sweetpotato0/enrichrag/contrib/session/mongo"
	sessionredis "github.com/sweetpotato0/enrichrag/contrib/session/redis"
	"github.com/sweetpotato0/enrichrag/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/enrichrag/contrib/vector/inmemory"
	"github.com/sweetpotato0/enrichrag/contrib/vector/pg"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/pkg/telemetry"
	"github.com/sweetpotato0/enrichrag/rag/answer"
	"github.com/sweetpotato0/enrichrag/rag/chunking"
	"github.com/sweetpotato0/enrichrag/rag/embedder"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
	"github.com/sweetpotato0/enrichrag/rag/tokenizer"
	"github.com/sweetpotato0/enrichrag/rating"
	"github.com/sweetpotato0/enrichrag/session"
	"github.com/sweetpotato0/enrichrag/vector"
)

// application holds every wired component of one process.
type application struct {
	cfg          *config.Config
	retriever    *retriever.Retriever
	pipeline     *answer.Pipeline
	registry     *enrich.Registry
	orchestrator *enrich.Orchestrator
	retention    *enrich.Retention
	ratings      *rating.Service
	sessions     *session.Manager
	logger       *slog.Logger

	closers []func(context.Context) error
}

// buildApplication wires components from cfg. Close must be called even when
// an error is returned.
func buildApplication(ctx context.Context, cfg *config.Config) (app *application, err error) {
	app = &application{cfg: cfg, logger: logging.WithComponent("app")}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "enrichrag",
		Disable:     cfg.Telemetry.Disable,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return app, err
	}
	app.onClose(shutdown)

	tok, err := newTokenizer(cfg.Chunking.Encoding)
	if err != nil {
		return app, err
	}

	gateway := embedder.NewGateway(openaiembed.New(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, openaisdk.EmbeddingModel(cfg.Embedding.Model), cfg.Embedding.Dimension))
	store, err := app.newVectorStore(ctx)
	if err != nil {
		return app, err
	}
	chunker := chunking.NewSimpleChunker(
		chunking.WithChunkSize(cfg.Chunking.Size),
		chunking.WithOverlap(cfg.Chunking.Overlap),
		chunking.WithTokenizer(tok),
	)
	app.retriever = retriever.New(store, gateway, chunker, retriever.WithTopK(cfg.Pipeline.TopK))

	client, err := app.newLLM(ctx)
	if err != nil {
		return app, err
	}

	app.registry, err = newRegistry(cfg.Enrichment)
	if err != nil {
		return app, err
	}
	ledger, err := app.newLedger()
	if err != nil {
		return app, err
	}
	e := cfg.Enrichment
	app.orchestrator = enrich.NewOrchestrator(app.registry, app.retriever, gateway,
		enrich.WithThreshold(e.ConfidenceThreshold),
		enrich.WithMaxSources(e.MaxSources),
		enrich.WithMaxCalls(e.MaxCalls),
		enrich.WithConnectorTimeout(e.ConnectorTimeout.Std()),
		enrich.WithCourtesyDelay(e.CourtesyDelay.Std()),
		enrich.WithMaxContentLength(e.MaxContentLength),
		enrich.WithTokenizer(tok),
		enrich.WithLedger(ledger),
	)
	if e.RetentionTTL > 0 {
		app.retention = enrich.NewRetention(ledger, app.retriever, e.RetentionTTL.Std())
	}

	p := cfg.Pipeline
	app.pipeline, err = answer.New(app.retriever, client,
		answer.WithTopK(p.TopK),
		answer.WithDeadline(p.Deadline.Std()),
		answer.WithGenerationTimeout(p.GenerationTimeout.Std()),
		answer.WithRelevanceFilter(p.RelevanceFilter),
		answer.WithMaxTokens(int64(cfg.LLM.MaxTokens)),
		answer.WithEnricher(app.orchestrator),
	)
	if err != nil {
		return app, err
	}

	if app.ratings, err = app.newRatings(ctx); err != nil {
		return app, err
	}
	if app.sessions, err = app.newSessions(ctx); err != nil {
		return app, err
	}
	app.logger.Info("application ready",
		"provider", cfg.LLM.Provider,
		"vector_store", cfg.VectorStore.Type,
		"connectors", len(app.registry.Enabled()),
	)
	return app, nil
}

func (a *application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newTokenizer(encoding string) (tokenizer.Tokenizer, error) {
	if encoding == "" {
		return tokenizer.RuneTokenizer{}, nil
	}
	tok, err := tiktoken.New(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", encoding, err)
	}
	return tok, nil
}

func (a *application) newVectorStore(ctx context.Context) (vector.Store, error) {
	cfg := a.cfg
	if cfg.VectorStore.Type != config.VectorStorePostgres {
		return inmemory.NewVectorStore(), nil
	}
	store, err := pg.New(ctx, &pg.Config{
		DSN:       cfg.VectorStore.DSN,
		Dimension: cfg.Embedding.Dimension,
		TableName: cfg.VectorStore.Table,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { store.Close(); return nil })
	return store, nil
}

func (a *application) newLLM(ctx context.Context) (llm.Client, error) {
	c := a.cfg.LLM
	switch c.Provider {
	case config.ProviderClaude:
		cc := claude.DefaultConfig(c.APIKey, c.BaseURL)
		if c.Model != "" {
			cc.Model = c.Model
		}
		cc.MaxTokens = int64(c.MaxTokens)
		cc.Temperature = c.Temperature
		return claude.New(cc), nil
	case config.ProviderGemini:
		gc := gemini.DefaultConfig(c.APIKey)
		if c.Model != "" {
			gc.Model = c.Model
		}
		gc.MaxTokens = int32(c.MaxTokens)
		gc.Temperature = float32(c.Temperature)
		p, err := gemini.New(ctx, gc)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return p.Close() })
		return p, nil
	case config.ProviderGroq:
		gc := groq.DefaultConfig(c.APIKey)
		if c.BaseURL != "" {
			gc.BaseURL = c.BaseURL
		}
		if c.Model != "" {
			gc.Model = c.Model
		}
		gc.MaxTokens = int64(c.MaxTokens)
		gc.Temperature = c.Temperature
		return groq.New(gc), nil
	default:
		oc := openai.DefaultConfig().WithAPIKey(c.APIKey).WithBaseURL(c.BaseURL)
		if c.Model != "" {
			oc.WithModel(c.Model)
		}
		oc.MaxTokens = int64(c.MaxTokens)
		oc.Temperature = c.Temperature
		return openai.New(oc), nil
	}
}

func newRegistry(e config.EnrichmentConfig) (*enrich.Registry, error) {
	httpClient := connector.NewHTTPClient(e.ConnectorTimeout.Std())
	sources := []struct {
		c       enrich.Connector
		enabled bool
	}{
		{wikipedia.New(wikipedia.WithHTTPClient(httpClient)), e.Connectors.Wikipedia},
		{arxiv.New(arxiv.WithHTTPClient(httpClient)), e.Connectors.Arxiv},
		{pubmed.New(pubmed.WithHTTPClient(httpClient), pubmed.WithAPIKey(e.Connectors.PubMedAPIKey)), e.Connectors.PubMed},
		{websearch.New(websearch.WithHTTPClient(httpClient)), e.Connectors.WebSearch},
	}
	registry := enrich.NewRegistry()
	for _, s := range sources {
		if err := registry.Register(s.c, 0); err != nil {
			return nil, err
		}
		if err := registry.SetEnabled(s.c.Name(), s.enabled && e.Enabled); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (a *application) newLedger() (enrich.Ledger, error) {
	c := a.cfg.Ledger
	if c.Type != config.BackendRedis {
		return enrich.NewMemoryLedger(), nil
	}
	l := ledgerredis.New(&ledgerredis.Config{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
	})
	a.onClose(func(context.Context) error { return l.Close() })
	return l, nil
}

func (a *application) newRatings(ctx context.Context) (*rating.Service, error) {
	c := a.cfg.Rating
	if c.Type == config.BackendMemory || c.Type == "" {
		return rating.NewService(nil), nil
	}
	driver := ratingsql.DriverSQLite
	if c.Type == config.BackendPostgres {
		driver = ratingsql.DriverPostgres
	}
	store, err := ratingsql.Open(ctx, ratingsql.Config{Driver: driver, DSN: c.DSN})
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return store.Close() })
	return rating.NewService(store), nil
}

func (a *application) newSessions(ctx context.Context) (*session.Manager, error) {
	c := a.cfg.Session
	switch c.Type {
	case config.BackendRedis:
		store := sessionredis.New(&sessionredis.Config{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			TTL:      c.Redis.TTL.Std(),
		})
		a.onClose(func(context.Context) error { return store.Close() })
		return session.NewManager(session.WithStore(store)), nil
	case config.BackendMongo:
		store, err := sessionmongo.New(ctx, &sessionmongo.Config{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(store.Close)
		return session.NewManager(session.WithStore(store)), nil
	default:
		return session.NewManager(), nil
	}
}

// runRetention sweeps expired enrichment sources until ctx is done.
func (a *application) runRetention(ctx context.Context) {
	if a.retention == nil {
		return
	}
	interval := a.cfg.Enrichment.RetentionTTL.Std() / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go a.retention.Run(ctx, interval)
}
