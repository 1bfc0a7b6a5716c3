package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with environment variables. Provider keys follow
// the selected provider; OPENAI_API_KEY also feeds the embedder.
func ApplyEnv(cfg *Config) {
	envString(&cfg.Server.Addr, "ENRICHRAG_SERVER_ADDR")

	envString(&cfg.LLM.Provider, "ENRICHRAG_LLM_PROVIDER")
	envString(&cfg.LLM.Model, "ENRICHRAG_LLM_MODEL")
	envString(&cfg.LLM.BaseURL, "ENRICHRAG_LLM_BASE_URL")
	envFloat(&cfg.LLM.Temperature, "ENRICHRAG_LLM_TEMPERATURE")
	envInt(&cfg.LLM.MaxTokens, "ENRICHRAG_LLM_MAX_TOKENS")
	if key := providerKeyEnv(cfg.LLM.Provider); key != "" {
		envString(&cfg.LLM.APIKey, key)
	}
	envString(&cfg.LLM.APIKey, "ENRICHRAG_LLM_API_KEY")

	envString(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	envString(&cfg.Embedding.APIKey, "ENRICHRAG_EMBEDDING_API_KEY")
	envString(&cfg.Embedding.BaseURL, "ENRICHRAG_EMBEDDING_BASE_URL")
	envString(&cfg.Embedding.Model, "ENRICHRAG_EMBEDDING_MODEL")
	envInt(&cfg.Embedding.Dimension, "ENRICHRAG_EMBEDDING_DIMENSION")

	envString(&cfg.VectorStore.Type, "ENRICHRAG_VECTOR_STORE")
	envString(&cfg.VectorStore.DSN, "ENRICHRAG_VECTOR_DSN")

	envInt(&cfg.Chunking.Size, "ENRICHRAG_CHUNK_SIZE")
	envInt(&cfg.Chunking.Overlap, "ENRICHRAG_CHUNK_OVERLAP")
	envString(&cfg.Chunking.Encoding, "ENRICHRAG_CHUNK_ENCODING")

	envInt(&cfg.Pipeline.TopK, "ENRICHRAG_TOP_K")
	envBool(&cfg.Pipeline.RelevanceFilter, "ENRICHRAG_RELEVANCE_FILTER")
	envDuration(&cfg.Pipeline.Deadline, "ENRICHRAG_DEADLINE")

	envBool(&cfg.Enrichment.Enabled, "ENRICHRAG_ENRICHMENT_ENABLED")
	envFloat(&cfg.Enrichment.ConfidenceThreshold, "ENRICHRAG_CONFIDENCE_THRESHOLD")
	envInt(&cfg.Enrichment.MaxSources, "ENRICHRAG_MAX_SOURCES")
	envDuration(&cfg.Enrichment.ConnectorTimeout, "ENRICHRAG_CONNECTOR_TIMEOUT")
	envDuration(&cfg.Enrichment.RetentionTTL, "ENRICHRAG_RETENTION_TTL")
	envString(&cfg.Enrichment.Connectors.PubMedAPIKey, "NCBI_API_KEY")

	envString(&cfg.Ledger.Type, "ENRICHRAG_LEDGER")
	envString(&cfg.Ledger.Redis.Addr, "ENRICHRAG_REDIS_ADDR")
	envString(&cfg.Session.Type, "ENRICHRAG_SESSION_STORE")
	envString(&cfg.Session.Redis.Addr, "ENRICHRAG_REDIS_ADDR")
	envString(&cfg.Session.Mongo.URI, "ENRICHRAG_MONGODB_URI")
	envString(&cfg.Rating.Type, "ENRICHRAG_RATING_STORE")
	envString(&cfg.Rating.DSN, "ENRICHRAG_RATING_DSN")

	envString(&cfg.Logging.Level, "ENRICHRAG_LOG_LEVEL")
	envString(&cfg.Logging.Format, "ENRICHRAG_LOG_FORMAT")
	envString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	envBool(&cfg.Telemetry.Disable, "ENRICHRAG_TELEMETRY_DISABLE")
}

func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderClaude:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	}
	return ""
}

// Helper functions for environment variable reading. Unset or unparsable
// values leave the destination untouched.

func envString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func envInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			*dst = intVal
		}
	}
}

func envFloat(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}

func envDuration(dst *Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			*dst = Duration(duration)
		}
	}
}
