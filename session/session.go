// Package session keeps per-conversation history for the HTTP API: each
// session stores the user's questions and summaries of the answers given.
package session

import (
	"context"
	"time"

	"github.com/sweetpotato0/enrichrag/message"
)

// Turn is one message in a session.
type Turn struct {
	Role              message.Role `json:"role" bson:"role"`
	Content           string       `json:"content" bson:"content"`
	Sources           []string     `json:"sources,omitempty" bson:"sources,omitempty"`
	Confidence        *float64     `json:"confidence,omitempty" bson:"confidence,omitempty"`
	EnrichmentApplied bool         `json:"enrichment_applied,omitempty" bson:"enrichment_applied,omitempty"`
	Timestamp         time.Time    `json:"timestamp" bson:"timestamp"`
}

// Record is the persisted form of a session.
type Record struct {
	ID        string    `json:"session_id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	Turns     []Turn    `json:"messages" bson:"messages"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Turns = make([]Turn, len(r.Turns))
	for i, turn := range r.Turns {
		if turn.Sources != nil {
			turn.Sources = append([]string(nil), turn.Sources...)
		}
		if turn.Confidence != nil {
			c := *turn.Confidence
			turn.Confidence = &c
		}
		out.Turns[i] = turn
	}
	return &out
}

// Summary is the listing view of a session.
type Summary struct {
	ID           string    `json:"session_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Summary returns the listing view of r.
func (r *Record) Summary() Summary {
	return Summary{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		MessageCount: len(r.Turns),
	}
}

// Store defines the interface for session storage backends.
// Load returns an error wrapping errors.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}
