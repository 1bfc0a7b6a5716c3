package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single prompt or reply exchanged with a model.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// System is shorthand for NewMessage(RoleSystem, content).
func System(content string) *Message { return NewMessage(RoleSystem, content) }

// User is shorthand for NewMessage(RoleUser, content).
func User(content string) *Message { return NewMessage(RoleUser, content) }

// Text returns the trimmed message content; nil-safe.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Content)
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return &cloned
}

// Split separates system prompts from the conversational messages.
// Providers whose APIs carry the system prompt out of band use it.
func Split(msgs []*Message) (system string, rest []*Message) {
	var prompts []string
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Role == RoleSystem {
			prompts = append(prompts, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(prompts, "\n"), rest
}
