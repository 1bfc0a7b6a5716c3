package api

import (
	"github.com/sweetpotato0/enrichrag/rag/answer"
	"github.com/sweetpotato0/enrichrag/rating"
)

type SearchRequest struct {
	Query                string `json:"query" validate:"required,min=1,max=1000"`
	TopK                 int    `json:"top_k" validate:"omitempty,min=1,max=20"`
	EnableAutoEnrichment *bool  `json:"enable_auto_enrichment"`
	SessionID            string `json:"session_id" validate:"omitempty,uuid"`
}

type SearchResponse struct {
	*answer.FinalResponse
	SessionID string `json:"session_id,omitempty"`
}

type RateRequest struct {
	Query    string `json:"query" validate:"required,max=1000"`
	Answer   string `json:"answer" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

type RateResponse struct {
	Status   string `json:"status"`
	RatingID string `json:"rating_id"`
}

type LowRatedResponse struct {
	Count   int             `json:"count"`
	Ratings []rating.Rating `json:"low_rated"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	VectorStore    string `json:"vector_store"`
	DocumentsCount int    `json:"documents_count"`
}

type IngestRequest struct {
	ID       string         `json:"id" validate:"omitempty,max=200"`
	Title    string         `json:"title" validate:"max=500"`
	Content  string         `json:"content" validate:"required"`
	Metadata map[string]any `json:"metadata"`
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

type DeleteDocumentResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

type CreateSessionRequest struct {
	Name string `json:"name" validate:"max=200"`
}
