package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name      string
		run       func(v *Validator)
		wantError bool
	}{
		{"non-empty value", func(v *Validator) { v.RequireNonEmpty("f", "valid") }, false},
		{"blank value", func(v *Validator) { v.RequireNonEmpty("f", "  ") }, true},
		{"positive value", func(v *Validator) { v.RequirePositive("f", 10) }, false},
		{"zero value", func(v *Validator) { v.RequirePositive("f", 0) }, true},
		{"zero non-negative", func(v *Validator) { v.RequireNonNegative("f", 0) }, false},
		{"negative non-negative", func(v *Validator) { v.RequireNonNegative("f", -1) }, true},
		{"positive duration", func(v *Validator) { v.RequirePositiveDuration("f", time.Second) }, false},
		{"zero duration", func(v *Validator) { v.RequirePositiveDuration("f", 0) }, true},
		{"in range", func(v *Validator) { v.ValidateRange("f", 50, 0, 100) }, false},
		{"range boundary", func(v *Validator) { v.ValidateRange("f", 100, 0, 100) }, false},
		{"above range", func(v *Validator) { v.ValidateRange("f", 101, 0, 100) }, true},
		{"float in range", func(v *Validator) { v.ValidateFloatRange("f", 0.7, 0, 1) }, false},
		{"float below range", func(v *Validator) { v.ValidateFloatRange("f", -0.1, 0, 1) }, true},
		{"redis db", func(v *Validator) { v.ValidateDBNumber("f", 15) }, false},
		{"redis db too high", func(v *Validator) { v.ValidateDBNumber("f", 16) }, true},
		{"one of", func(v *Validator) { v.ValidateOneOf("f", "b", "a", "b") }, false},
		{"not one of", func(v *Validator) { v.ValidateOneOf("f", "c", "a", "b") }, true},
		{"less", func(v *Validator) { v.ValidateLess("f", 200, 1000, "size") }, false},
		{"not less", func(v *Validator) { v.ValidateLess("f", 1000, 1000, "size") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.run(v)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v (%v)", v.HasErrors(), tt.wantError, v.Errors())
			}
		})
	}
}

func TestValidatorCombinesErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("a", "").RequirePositive("b", 0)
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(v.Errors()))
	}
	err := v.Error()
	if !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "a: value cannot be empty") || !strings.Contains(err.Error(), "b: value must be positive") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if NewValidator().Error() != nil {
		t.Fatalf("empty validator should not error")
	}
}

func TestValidateLLMConfig(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		apiKey      string
		model       string
		temperature float64
		maxTokens   int
		wantError   bool
	}{
		{"valid openai", ProviderOpenAI, "sk", "gpt-4o-mini", 0.1, 2000, false},
		{"valid gemini", ProviderGemini, "key", "gemini-1.5-flash", 0, 10, false},
		{"unknown provider", "cohere", "key", "m", 0.1, 10, true},
		{"missing key", ProviderClaude, "", "m", 0.1, 10, true},
		{"temperature too high", ProviderOpenAI, "sk", "m", 2.5, 10, true},
		{"no tokens", ProviderOpenAI, "sk", "m", 0.1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLLMConfig(tt.provider, tt.apiKey, tt.model, tt.temperature, tt.maxTokens)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateLLMConfig() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateStoreConfigs(t *testing.T) {
	if err := ValidateVectorStoreConfig(VectorStorePostgres, "", 1536); err == nil {
		t.Errorf("pgvector without dsn should fail")
	}
	if err := ValidateVectorStoreConfig(VectorStoreMemory, "", 1536); err != nil {
		t.Errorf("memory store: %v", err)
	}
	if err := ValidateRedisConfig("localhost:6379", 0, "p:"); err != nil {
		t.Errorf("redis: %v", err)
	}
	if err := ValidateRedisConfig("", 20, ""); err == nil {
		t.Errorf("invalid redis config accepted")
	}
	if err := ValidateMongoDBConfig("mongodb://x", "db", ""); err == nil {
		t.Errorf("mongo without collection accepted")
	}
	if err := ValidateEnrichmentConfig(0.7, 3, 6, 30*time.Second, 500*time.Millisecond); err != nil {
		t.Errorf("enrichment defaults: %v", err)
	}
	if err := ValidateEnrichmentConfig(1.5, 0, 0, 0, -time.Second); err == nil {
		t.Errorf("invalid enrichment config accepted")
	}
}
