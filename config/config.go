// Package config loads enrichrag settings from YAML or TOML files, a .env
// file and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	VectorStoreMemory   = "memory"
	VectorStorePostgres = "pgvector"

	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Duration is a time.Duration that reads and writes as "30s" in both formats.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	Model       string  `yaml:"model" toml:"model"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
}

type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Model     string `yaml:"model" toml:"model"`
	Dimension int    `yaml:"dimension" toml:"dimension"`
}

type VectorStoreConfig struct {
	Type  string `yaml:"type" toml:"type"`
	DSN   string `yaml:"dsn" toml:"dsn"`
	Table string `yaml:"table" toml:"table"`
}

// ChunkingConfig sizes chunks in tokenizer units; an empty Encoding counts runes.
type ChunkingConfig struct {
	Size     int    `yaml:"size" toml:"size"`
	Overlap  int    `yaml:"overlap" toml:"overlap"`
	Encoding string `yaml:"encoding" toml:"encoding"`
}

type PipelineConfig struct {
	TopK              int      `yaml:"top_k" toml:"top_k"`
	RelevanceFilter   bool     `yaml:"relevance_filter" toml:"relevance_filter"`
	Deadline          Duration `yaml:"deadline" toml:"deadline"`
	GenerationTimeout Duration `yaml:"generation_timeout" toml:"generation_timeout"`
}

type ConnectorsConfig struct {
	Wikipedia    bool   `yaml:"wikipedia" toml:"wikipedia"`
	Arxiv        bool   `yaml:"arxiv" toml:"arxiv"`
	PubMed       bool   `yaml:"pubmed" toml:"pubmed"`
	WebSearch    bool   `yaml:"websearch" toml:"websearch"`
	PubMedAPIKey string `yaml:"pubmed_api_key" toml:"pubmed_api_key"`
}

type EnrichmentConfig struct {
	Enabled             bool             `yaml:"enabled" toml:"enabled"`
	ConfidenceThreshold float64          `yaml:"confidence_threshold" toml:"confidence_threshold"`
	MaxSources          int              `yaml:"max_sources" toml:"max_sources"`
	MaxCalls            int              `yaml:"max_calls" toml:"max_calls"`
	ConnectorTimeout    Duration         `yaml:"connector_timeout" toml:"connector_timeout"`
	CourtesyDelay       Duration         `yaml:"courtesy_delay" toml:"courtesy_delay"`
	MaxContentLength    int              `yaml:"max_content_length" toml:"max_content_length"`
	RetentionTTL        Duration         `yaml:"retention_ttl" toml:"retention_ttl"`
	Connectors          ConnectorsConfig `yaml:"connectors" toml:"connectors"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr" toml:"addr"`
	Password string   `yaml:"password" toml:"password"`
	DB       int      `yaml:"db" toml:"db"`
	Prefix   string   `yaml:"prefix" toml:"prefix"`
	TTL      Duration `yaml:"ttl" toml:"ttl"`
}

type MongoConfig struct {
	URI        string `yaml:"uri" toml:"uri"`
	Database   string `yaml:"database" toml:"database"`
	Collection string `yaml:"collection" toml:"collection"`
}

// LedgerConfig selects where enrichment dedupe keys live (memory or redis).
type LedgerConfig struct {
	Type  string      `yaml:"type" toml:"type"`
	Redis RedisConfig `yaml:"redis" toml:"redis"`
}

// SessionConfig selects the chat session store (memory, redis or mongo).
type SessionConfig struct {
	Type  string      `yaml:"type" toml:"type"`
	Redis RedisConfig `yaml:"redis" toml:"redis"`
	Mongo MongoConfig `yaml:"mongo" toml:"mongo"`
}

// RatingConfig selects the rating store (memory, sqlite or postgres).
type RatingConfig struct {
	Type string `yaml:"type" toml:"type"`
	DSN  string `yaml:"dsn" toml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// TelemetryConfig enables tracing; an empty Endpoint exports spans to stderr.
type TelemetryConfig struct {
	Disable  bool   `yaml:"disable" toml:"disable"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// Config is the root of the application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding" toml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Chunking    ChunkingConfig    `yaml:"chunking" toml:"chunking"`
	Pipeline    PipelineConfig    `yaml:"pipeline" toml:"pipeline"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment" toml:"enrichment"`
	Ledger      LedgerConfig      `yaml:"ledger" toml:"ledger"`
	Session     SessionConfig     `yaml:"session" toml:"session"`
	Rating      RatingConfig      `yaml:"rating" toml:"rating"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" toml:"telemetry"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000"},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   2000,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		VectorStore: VectorStoreConfig{Type: VectorStoreMemory, Table: "chunks"},
		Chunking:    ChunkingConfig{Size: 1000, Overlap: 200},
		Pipeline: PipelineConfig{
			TopK:              5,
			RelevanceFilter:   true,
			Deadline:          Duration(90 * time.Second),
			GenerationTimeout: Duration(60 * time.Second),
		},
		Enrichment: EnrichmentConfig{
			Enabled:             true,
			ConfidenceThreshold: 0.7,
			MaxSources:          3,
			MaxCalls:            3,
			ConnectorTimeout:    Duration(30 * time.Second),
			CourtesyDelay:       Duration(500 * time.Millisecond),
			MaxContentLength:    4000,
			Connectors: ConnectorsConfig{
				Wikipedia: true,
				Arxiv:     true,
				PubMed:    true,
				WebSearch: true,
			},
		},
		Ledger: LedgerConfig{
			Type:  BackendMemory,
			Redis: RedisConfig{Addr: "localhost:6379", Prefix: "enrichrag:ledger:"},
		},
		Session: SessionConfig{
			Type:  BackendMemory,
			Redis: RedisConfig{Addr: "localhost:6379", DB: 1, Prefix: "enrichrag:session:", TTL: Duration(24 * time.Hour)},
			Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "enrichrag", Collection: "sessions"},
		},
		Rating:    RatingConfig{Type: BackendMemory},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{Disable: true},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// the environment. The file format follows its extension (.yaml, .yml, .toml).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q: %w", filepath.Ext(path), errorskg.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Save writes cfg in the format chosen by the file extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q: %w", filepath.Ext(path), errorskg.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks every section used by the selected backends.
func (c *Config) Validate() error {
	var errs []error
	v := NewValidator()
	v.RequireNonEmpty("server.addr", c.Server.Addr)
	v.RequirePositive("chunking.size", c.Chunking.Size)
	v.RequireNonNegative("chunking.overlap", c.Chunking.Overlap)
	v.ValidateLess("chunking.overlap", c.Chunking.Overlap, c.Chunking.Size, "chunking.size")
	v.ValidateRange("pipeline.top_k", c.Pipeline.TopK, 1, 20)
	v.RequirePositiveDuration("pipeline.deadline", c.Pipeline.Deadline.Std())
	v.RequirePositiveDuration("pipeline.generation_timeout", c.Pipeline.GenerationTimeout.Std())
	v.RequireNonEmpty("embedding.api_key", c.Embedding.APIKey)
	v.RequireNonEmpty("embedding.model", c.Embedding.Model)
	v.ValidateOneOf("ledger.type", c.Ledger.Type, BackendMemory, BackendRedis)
	v.ValidateOneOf("session.type", c.Session.Type, BackendMemory, BackendRedis, BackendMongo)
	v.ValidateOneOf("rating.type", c.Rating.Type, BackendMemory, BackendSQLite, BackendPostgres)
	if c.Rating.Type != BackendMemory {
		v.RequireNonEmpty("rating.dsn", c.Rating.DSN)
	}
	errs = append(errs, v.Error())

	errs = append(errs,
		ValidateLLMConfig(c.LLM.Provider, c.LLM.APIKey, c.LLM.Model, c.LLM.Temperature, c.LLM.MaxTokens),
		ValidateVectorStoreConfig(c.VectorStore.Type, c.VectorStore.DSN, c.Embedding.Dimension),
		ValidateEnrichmentConfig(c.Enrichment.ConfidenceThreshold, c.Enrichment.MaxSources, c.Enrichment.MaxCalls,
			c.Enrichment.ConnectorTimeout.Std(), c.Enrichment.CourtesyDelay.Std()),
	)
	if c.Ledger.Type == BackendRedis {
		r := c.Ledger.Redis
		errs = append(errs, ValidateRedisConfig(r.Addr, r.DB, r.Prefix))
	}
	switch c.Session.Type {
	case BackendRedis:
		r := c.Session.Redis
		errs = append(errs, ValidateRedisConfig(r.Addr, r.DB, r.Prefix))
	case BackendMongo:
		m := c.Session.Mongo
		errs = append(errs, ValidateMongoDBConfig(m.URI, m.Database, m.Collection))
	}
	return errors.Join(errs...)
}
