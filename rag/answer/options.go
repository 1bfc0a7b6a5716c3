package answer

import (
	"time"
)

// Config controls the answer pipeline.
type Config struct {
	TopK              int           // Matches retrieved per pass
	Deadline          time.Duration // Global budget of one Answer call
	GenerationTimeout time.Duration // Budget of a single model call
	EnableFilter      bool          // Run the relevance filter before generation
	ExcerptLength     int           // Max runes of a source excerpt
	MaxTokens         int64         // Generation token cap passed to the provider
	GraphMaxVisits    int           // Visit guard; two passes at most

	GeneratorPrompt   string // System prompt of the answer generator
	StrictRetryPrompt string // Follow-up sent once when generation output does not parse
	FilterPrompt      string // System prompt of the relevance filter
	NoDocumentsAnswer string // Fixed answer when nothing usable was retrieved

	enricher Enricher
	now      func() time.Time
}

// Option customises the pipeline configuration.
type Option func(*Config)

// WithTopK overrides how many matches each pass retrieves.
func WithTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.TopK = k
		}
	}
}

// WithDeadline bounds one Answer call. When it expires during enrichment or
// regeneration the pre-enrichment answer is returned.
func WithDeadline(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Deadline = d
		}
	}
}

// WithGenerationTimeout bounds each model call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.GenerationTimeout = d
		}
	}
}

// WithRelevanceFilter toggles the relevance filter.
func WithRelevanceFilter(enabled bool) Option {
	return func(cfg *Config) {
		cfg.EnableFilter = enabled
	}
}

// WithExcerptLength sets the attribution excerpt length in runes.
func WithExcerptLength(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.ExcerptLength = n
		}
	}
}

// WithMaxTokens caps generation output.
func WithMaxTokens(n int64) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxTokens = n
		}
	}
}

// WithGeneratorPrompt replaces the generator system prompt. The prompt must
// keep asking for the JSON keys the parser expects.
func WithGeneratorPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.GeneratorPrompt = prompt
		}
	}
}

// WithFilterPrompt replaces the relevance filter system prompt.
func WithFilterPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.FilterPrompt = prompt
		}
	}
}

// WithEnricher enables the enrichment cycle.
func WithEnricher(e Enricher) Option {
	return func(cfg *Config) {
		cfg.enricher = e
	}
}

// WithClock overrides the response timestamp source.
func WithClock(now func() time.Time) Option {
	return func(cfg *Config) {
		if now != nil {
			cfg.now = now
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		TopK:              5,
		Deadline:          90 * time.Second,
		GenerationTimeout: 60 * time.Second,
		EnableFilter:      true,
		ExcerptLength:     500,
		MaxTokens:         2000,
		GraphMaxVisits:    2,
		GeneratorPrompt: `You are an assistant that answers questions using ONLY the provided context documents, and judges how well that context supports the answer.
Respond with a single JSON object and nothing else:
{"answer":"...","confidence":0.85,"is_complete":true,"missing_info":["..."],"reasoning":"...","relevant_sources":[0,1]}
Rules:
- "confidence" is a number from 0.0 to 1.0: your estimate that the answer is fully supported by the context.
- "is_complete" is true only when the context fully answers the question; otherwise false.
- "missing_info" lists the specific facts that are missing or uncertain; it must not be empty when "is_complete" is false.
- "relevant_sources" lists the 0-based [Source i] indices you actually used.
- When the context does not contain the answer, say so plainly and keep confidence low. Never invent facts.`,
		StrictRetryPrompt: `Your previous reply could not be parsed. Reply again with ONLY a JSON object with exactly these keys: "answer" (string), "confidence" (number 0-1), "is_complete" (boolean), "missing_info" (array of strings), "reasoning" (string), "relevant_sources" (array of integers). No markdown, no prose.`,
		FilterPrompt: `You check retrieved passages for topical relevance to a question. Do not answer the question and do not rewrite passages.
Return JSON only: {"relevant_indices":[...]} listing the 0-based indices of passages that are on-topic for the question. Return an empty list when none are.`,
		NoDocumentsAnswer: "I couldn't find any relevant documents in the knowledge base to answer your question.",
		now:               time.Now,
	}
}
