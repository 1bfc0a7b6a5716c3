// Package api exposes the answer pipeline, ratings, sessions and document
// ingestion over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/answer"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/rating"
	"github.com/sweetpotato0/enrichrag/session"
)

// Answerer runs one query through the answer pipeline.
type Answerer interface {
	AnswerWith(ctx context.Context, query string, opts answer.RunOptions) (*answer.FinalResponse, error)
}

// Index is the document side of the knowledge base.
type Index interface {
	IndexDocuments(ctx context.Context, docs ...document.Document) (int, error)
	DeleteSource(ctx context.Context, sourceID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// CapabilityLister describes the configured enrichment sources.
type CapabilityLister interface {
	Capabilities() enrich.Capabilities
}

// Deps are the services behind the HTTP handlers. Sessions and Sources are optional.
type Deps struct {
	Pipeline Answerer
	Index    Index
	Ratings  *rating.Service
	Sessions *session.Manager
	Sources  CapabilityLister
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithEnrichment toggles automatic enrichment for every request.
func WithEnrichment(enabled bool) Option {
	return func(s *Server) { s.enrichment = enabled }
}

// WithRateLimit limits each client IP to limit requests per second.
func WithRateLimit(limit float64, burst int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.limiter = newClientLimiter(rate.Limit(limit), burst)
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Server struct {
	app        *fiber.App
	deps       Deps
	validate   *validator.Validate
	version    string
	enrichment bool
	limiter    *clientLimiter
	logger     *slog.Logger
}

// New builds the fiber application and registers every route.
func New(deps Deps, opts ...Option) (*Server, error) {
	if deps.Pipeline == nil || deps.Index == nil || deps.Ratings == nil {
		return nil, fmt.Errorf("api: pipeline, index and ratings are required")
	}
	s := &Server{
		deps:       deps,
		validate:   newValidator(),
		version:    "dev",
		enrichment: true,
		logger:     logging.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "enrichrag",
		ErrorHandler:          errorHandler(s.logger),
		DisableStartupMessage: true,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(requestID(), requestLogger(s.logger))
	s.app.Get("/health", s.handleHealth)

	if s.limiter != nil {
		s.app.Use(s.limiter.handler())
	}
	s.app.Post("/search", s.handleSearch)
	s.app.Post("/rate", s.handleRate)
	s.app.Get("/ratings/statistics", s.handleRatingStatistics)
	s.app.Get("/ratings/low", s.handleLowRated)
	s.app.Get("/enrichment/capabilities", s.handleCapabilities)

	docs := s.app.Group("/documents")
	docs.Post("/", s.handleIngest)
	docs.Delete("/:id", s.handleDeleteDocument)

	if s.deps.Sessions != nil {
		sessions := s.app.Group("/sessions")
		sessions.Post("/", s.handleCreateSession)
		sessions.Get("/", s.handleListSessions)
		sessions.Get("/:id", s.handleGetSession)
		sessions.Delete("/:id", s.handleDeleteSession)
	}
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates a request body and converts failures into a ValidationError.
func (s *Server) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return NewValidationError(fields)
}
