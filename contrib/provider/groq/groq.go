package groq

import (
	"github.com/sweetpotato0/enrichrag/contrib/provider/openai"
)

// BaseURL is Groq's OpenAI-compatible endpoint.
const BaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "llama-3.3-70b-versatile"

// Config holds Groq provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Groq configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     BaseURL,
		Model:       DefaultModel,
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

// New creates a Groq provider. Groq speaks the OpenAI chat completions
// protocol, including json_object responses, so the OpenAI client is reused.
func New(config *Config) *openai.Provider {
	return openai.New(openaiConfig(config))
}

func openaiConfig(config *Config) *openai.Config {
	if config == nil {
		config = DefaultConfig("")
	}
	oc := openai.DefaultConfig().WithAPIKey(config.APIKey).WithBaseURL(config.BaseURL)
	if oc.BaseURL == "" {
		oc.WithBaseURL(BaseURL)
	}
	oc.WithModel(config.Model)
	if oc.Model == "" {
		oc.WithModel(DefaultModel)
	}
	if config.MaxTokens > 0 {
		oc.MaxTokens = config.MaxTokens
	}
	oc.Temperature = config.Temperature
	return oc
}
