// Package mcp serves the answer pipeline as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/answer"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

// Answerer runs one query through the answer pipeline.
type Answerer interface {
	AnswerWith(ctx context.Context, query string, opts answer.RunOptions) (*answer.FinalResponse, error)
}

// CapabilityLister describes the configured enrichment sources.
type CapabilityLister interface {
	Capabilities() enrich.Capabilities
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version advertised during initialization.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithEnrichment toggles automatic enrichment for every tool call.
func WithEnrichment(enabled bool) Option {
	return func(s *Server) { s.enrichment = enabled }
}

type Server struct {
	sdk        *sdkmcp.Server
	pipeline   Answerer
	sources    CapabilityLister
	version    string
	enrichment bool
	logger     *slog.Logger
}

// NewServer registers the answer and capabilities tools.
func NewServer(pipeline Answerer, sources CapabilityLister, opts ...Option) *Server {
	s := &Server{
		pipeline:   pipeline,
		sources:    sources,
		version:    "dev",
		enrichment: true,
		logger:     logging.WithComponent("mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sdk = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "enrichrag",
		Title:   "Self-assessing knowledge base",
		Version: s.version,
	}, nil)
	s.addAnswerTool()
	s.addCapabilitiesTool()
	return s
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &sdkmcp.StdioTransport{})
}

// Serve runs the server on an arbitrary transport.
func (s *Server) Serve(ctx context.Context, t sdkmcp.Transport) error {
	s.logger.Info("mcp server started", "version", s.version)
	return s.sdk.Run(ctx, t)
}

func (s *Server) addAnswerTool() {
	type args struct {
		Query           string `json:"query" jsonschema:"Question to answer from the knowledge base"`
		AllowEnrichment *bool  `json:"allow_enrichment,omitempty" jsonschema:"Fetch trusted external sources when the answer is incomplete (default true)"`
		TopK            int    `json:"top_k,omitempty" jsonschema:"Number of chunks to retrieve, 1-20"`
	}

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name:        "answer",
		Description: "Answer a question from the document knowledge base, with a confidence score, sources and any enrichment applied",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		query := strings.TrimSpace(a.Query)
		if query == "" || len(query) > 1000 {
			return nil, nil, fmt.Errorf("query must be 1-1000 characters")
		}
		if a.TopK < 0 || a.TopK > 20 {
			return nil, nil, fmt.Errorf("top_k must be between 1 and 20")
		}
		allow := s.enrichment
		if a.AllowEnrichment != nil {
			allow = allow && *a.AllowEnrichment
		}
		resp, err := s.pipeline.AnswerWith(ctx, query, answer.RunOptions{TopK: a.TopK, AllowEnrichment: allow})
		if err != nil {
			s.logger.Error("answer tool failed", "error", err)
			return nil, nil, err
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: RenderAnswer(resp)}},
		}, nil, nil
	})
}

func (s *Server) addCapabilitiesTool() {
	type args struct{}

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name:        "capabilities",
		Description: "List the trusted external sources used to enrich incomplete answers",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ args) (*sdkmcp.CallToolResult, any, error) {
		caps := enrich.Capabilities{}
		if s.sources != nil {
			caps = s.sources.Capabilities()
		}
		caps.AutoEnrichmentEnabled = caps.AutoEnrichmentEnabled && s.enrichment
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: RenderCapabilities(caps)}},
		}, nil, nil
	})
}

// RenderAnswer formats a response as plain text for tool and terminal output.
func RenderAnswer(resp *answer.FinalResponse) string {
	var b strings.Builder
	b.WriteString(resp.Answer)
	fmt.Fprintf(&b, "\n\nConfidence: %.2f", resp.Confidence)
	if !resp.IsComplete && len(resp.MissingInformation) > 0 {
		fmt.Fprintf(&b, "\nMissing: %s", strings.Join(resp.MissingInformation, "; "))
	}
	if resp.EnrichmentApplied {
		fmt.Fprintf(&b, "\nEnriched from: %s", strings.Join(resp.EnrichmentSources, ", "))
	}
	if len(resp.Sources) > 0 {
		b.WriteString("\nSources:")
		for _, src := range resp.Sources {
			fmt.Fprintf(&b, "\n- %s (%.2f)", src.Name, src.RelevanceScore)
			if src.URL != "" {
				fmt.Fprintf(&b, " %s", src.URL)
			}
		}
	}
	return b.String()
}

// RenderCapabilities formats the source list, one connector per line.
func RenderCapabilities(caps enrich.Capabilities) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auto enrichment: %t", caps.AutoEnrichmentEnabled)
	for _, c := range caps.Sources {
		state := "enabled"
		if !c.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(&b, "\n- %s [%s, priority %d]: %s", c.Label, state, c.Priority, c.Description)
	}
	return b.String()
}
