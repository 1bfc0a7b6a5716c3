package config

import (
	"fmt"
	"strings"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects field errors fluently.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

func (v *Validator) add(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty validates that a string field is not blank
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		return v.add(field, "value must be positive, got %d", value)
	}
	return v
}

// RequireNonNegative validates that an integer field is at least 0
func (v *Validator) RequireNonNegative(field string, value int) *Validator {
	if value < 0 {
		return v.add(field, "value must not be negative, got %d", value)
	}
	return v
}

// RequirePositiveDuration validates that a duration is greater than 0
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	if value <= 0 {
		return v.add(field, "duration must be positive, got %s", value)
	}
	return v
}

// ValidateRange validates that an integer field is within [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidateFloatRange validates that a float field is within [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
	}
	return v
}

// ValidateDBNumber validates a Redis database number (0-15)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.add(field, "value must be one of %v, got %q", allowed, value)
}

// ValidateLess validates that a is strictly smaller than b.
func (v *Validator) ValidateLess(field string, a, b int, other string) *Validator {
	if a >= b {
		return v.add(field, "value must be smaller than %s (%d), got %d", other, b, a)
	}
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error wrapping errors.ErrInvalidInput, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "\n  - %s: %s", e.Field, e.Message)
	}
	return fmt.Errorf("%s: %w", b.String(), errorskg.ErrInvalidInput)
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidateVectorStoreConfig validates the index backend selection.
func ValidateVectorStoreConfig(backend, dsn string, dimension int) error {
	v := NewValidator()
	v.ValidateOneOf("vector_store.type", backend, VectorStoreMemory, VectorStorePostgres)
	if backend == VectorStorePostgres {
		v.RequireNonEmpty("vector_store.dsn", dsn)
	}
	v.ValidateRange("embedding.dimension", dimension, 1, 16000)
	return v.Error()
}

// ValidateRedisConfig validates Redis configuration
func ValidateRedisConfig(addr string, db int, prefix string) error {
	v := NewValidator()
	v.RequireNonEmpty("addr", addr)
	v.ValidateDBNumber("db", db)
	v.RequireNonEmpty("prefix", prefix)
	return v.Error()
}

// ValidateMongoDBConfig validates MongoDB configuration
func ValidateMongoDBConfig(uri string, database string, collection string) error {
	v := NewValidator()
	v.RequireNonEmpty("uri", uri)
	v.RequireNonEmpty("database", database)
	v.RequireNonEmpty("collection", collection)
	return v.Error()
}

// ValidateLLMConfig validates generation provider configuration
func ValidateLLMConfig(provider, apiKey, model string, temperature float64, maxTokens int) error {
	v := NewValidator()
	v.ValidateOneOf("llm.provider", provider, ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderGroq)
	v.RequireNonEmpty("llm.api_key", apiKey)
	v.RequireNonEmpty("llm.model", model)
	v.ValidateFloatRange("llm.temperature", temperature, 0.0, 2.0)
	v.RequirePositive("llm.max_tokens", maxTokens)
	return v.Error()
}

// ValidateEnrichmentConfig validates the enrichment budget.
func ValidateEnrichmentConfig(threshold float64, maxSources, maxCalls int, timeout, courtesy time.Duration) error {
	v := NewValidator()
	v.ValidateFloatRange("enrichment.confidence_threshold", threshold, 0.0, 1.0)
	v.ValidateRange("enrichment.max_sources", maxSources, 1, 10)
	v.RequirePositive("enrichment.max_calls", maxCalls)
	v.RequirePositiveDuration("enrichment.connector_timeout", timeout)
	if courtesy < 0 {
		v.add("enrichment.courtesy_delay", "duration must not be negative, got %s", courtesy)
	}
	return v.Error()
}
