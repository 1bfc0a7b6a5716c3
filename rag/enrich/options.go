package enrich

import (
	"time"

	"github.com/sweetpotato0/enrichrag/rag/tokenizer"
)

// Config controls when and how enrichment runs.
type Config struct {
	Threshold        float64       // Confidence below which an incomplete answer triggers enrichment
	MaxSources       int           // Connectors selected per query
	MaxCalls         int           // Hard ceiling of external calls per query, retries included
	ConnectorTimeout time.Duration // Timeout of a single connector call
	CourtesyDelay    time.Duration // Minimum spacing between external call starts
	RetryBackoff     time.Duration // Pause before the single transient retry
	MaxContentLength int           // Content cap per result, in tokenizer units
	EmbedWorkers     int           // Parallel embedding calls while committing

	tokenizer tokenizer.Tokenizer
	ledger    Ledger
	now       func() time.Time
}

// Option customises the orchestrator configuration.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Threshold:        0.7,
		MaxSources:       3,
		MaxCalls:         3,
		ConnectorTimeout: 30 * time.Second,
		CourtesyDelay:    500 * time.Millisecond,
		RetryBackoff:     250 * time.Millisecond,
		MaxContentLength: 4000,
		EmbedWorkers:     4,
		tokenizer:        tokenizer.RuneTokenizer{},
		now:              time.Now,
	}
}

// WithThreshold sets the confidence threshold used by ShouldEnrich.
func WithThreshold(threshold float64) Option {
	return func(cfg *Config) {
		if threshold >= 0 && threshold <= 1 {
			cfg.Threshold = threshold
		}
	}
}

// WithMaxSources caps how many connectors are selected per query.
func WithMaxSources(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxSources = n
		}
	}
}

// WithMaxCalls caps external calls per query, retries included.
func WithMaxCalls(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxCalls = n
		}
	}
}

// WithConnectorTimeout bounds each connector call.
func WithConnectorTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.ConnectorTimeout = d
		}
	}
}

// WithCourtesyDelay spaces external call starts. Zero disables the delay.
func WithCourtesyDelay(d time.Duration) Option {
	return func(cfg *Config) {
		if d >= 0 {
			cfg.CourtesyDelay = d
		}
	}
}

// WithRetryBackoff sets the pause before retrying a transient failure.
func WithRetryBackoff(d time.Duration) Option {
	return func(cfg *Config) {
		if d >= 0 {
			cfg.RetryBackoff = d
		}
	}
}

// WithMaxContentLength caps committed content per result.
func WithMaxContentLength(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxContentLength = n
		}
	}
}

// WithTokenizer makes content truncation token aware.
func WithTokenizer(tok tokenizer.Tokenizer) Option {
	return func(cfg *Config) {
		if tok != nil {
			cfg.tokenizer = tok
		}
	}
}

// WithLedger shares the dedupe ledger with other orchestrators or a Retention sweeper.
func WithLedger(l Ledger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.ledger = l
		}
	}
}

// WithEmbedWorkers bounds parallel embedding during commit.
func WithEmbedWorkers(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.EmbedWorkers = n
		}
	}
}

// WithClock overrides the time source stamped into enriched_at.
func WithClock(now func() time.Time) Option {
	return func(cfg *Config) {
		if now != nil {
			cfg.now = now
		}
	}
}
