// Package llm defines the generation contract the answer pipeline consumes.
// Provider adapters live under contrib/provider.
package llm

import (
	"context"

	"github.com/sweetpotato0/enrichrag/message"
)

// Request bundles inputs for a single non-streaming generation call.
type Request struct {
	Messages []*message.Message
	// JSON asks the provider for a JSON-only reply when it supports a
	// structured output mode. Callers still validate the payload.
	JSON bool
	// MaxTokens overrides the provider default when positive.
	MaxTokens int64
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response captures the model reply.
type Response struct {
	Message *message.Message
	Model   string
	Usage   Usage
}

// Text returns the reply text; nil-safe.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Text()
}

// Client is implemented by every generation provider.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Reply wraps text into an assistant Response.
func Reply(text string) *Response {
	return &Response{Message: message.NewMessage(message.RoleAssistant, text)}
}
