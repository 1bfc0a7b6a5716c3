package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/message"
)

// jsonPrefill starts the assistant turn so the model continues a JSON object.
const jsonPrefill = "{"

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

// Provider implements llm.Client for Claude.
type Provider struct {
	config *Config
	client anthropic.Client
}

var _ llm.Client = (*Provider)(nil)

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2000
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithAuthToken(""),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Generate implements llm.Client. Claude has no JSON response mode, so JSON
// requests prefill the assistant turn with "{" and the prefix is restored
// on the reply.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	system, rest := message.Split(req.Messages)
	conversation := make([]anthropic.MessageParam, 0, len(rest)+1)
	for _, msg := range rest {
		switch msg.Role {
		case message.RoleUser:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case message.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
		}
	}
	prefill := req.JSON && len(rest) > 0 && rest[len(rest)-1].Role == message.RoleUser
	if prefill {
		conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(jsonPrefill)))
	}

	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		Messages:  conversation,
		MaxTokens: maxTokens,
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	apiMessage, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: Claude API error: %w", errorskg.ErrGeneration, err)
	}

	var sb strings.Builder
	for _, block := range apiMessage.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if prefill && !strings.HasPrefix(strings.TrimSpace(text), jsonPrefill) {
		text = jsonPrefill + text
	}

	return &llm.Response{
		Message: message.NewMessage(message.RoleAssistant, text),
		Model:   string(apiMessage.Model),
		Usage: llm.Usage{
			InputTokens:  apiMessage.Usage.InputTokens,
			OutputTokens: apiMessage.Usage.OutputTokens,
		},
	}, nil
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = temp
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}
