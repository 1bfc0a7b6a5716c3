package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/message"
	"google.golang.org/api/option"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-flash",
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

// Provider implements llm.Client for Google Gemini.
type Provider struct {
	config *Config
	client *genai.Client
}

var _ llm.Client = (*Provider)(nil)

// New creates a Gemini provider. Close releases the underlying connection.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: %w", errorskg.ErrInvalidInput)
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Close shuts the client down.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Generate implements llm.Client. Earlier turns become chat history and
// the last user message is sent.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}
	system, history, last, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	model := p.client.GenerativeModel(p.config.Model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}
	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(maxTokens)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	chat := model.StartChat()
	chat.History = history
	resp, err := chat.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("%w: Gemini API error: %w", errorskg.ErrGeneration, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: no content in Gemini response", errorskg.ErrGeneration)
	}
	out := &llm.Response{
		Message: message.NewMessage(message.RoleAssistant, text),
		Model:   p.config.Model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = float32(temp)
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}

// toContents maps messages onto Gemini roles. The final message must come
// from the user.
func toContents(msgs []*message.Message) (system string, history []*genai.Content, last string, err error) {
	system, rest := message.Split(msgs)
	if len(rest) == 0 || rest[len(rest)-1].Role != message.RoleUser {
		return "", nil, "", errors.New("gemini: conversation must end with a user message")
	}
	for _, msg := range rest[:len(rest)-1] {
		role := "user"
		if msg.Role == message.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Text())}})
	}
	return strings.TrimSpace(system), history, rest[len(rest)-1].Text(), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
