package answer

import (
	"time"

	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

// AssessedAnswer is one generation call's answer together with the model's
// own judgement of how well the context supports it.
// IsComplete == false always comes with at least one MissingInformation entry.
type AssessedAnswer struct {
	Answer             string   `json:"answer"`
	Confidence         float64  `json:"confidence"`
	IsComplete         bool     `json:"is_complete"`
	MissingInformation []string `json:"missing_info"`
	UsedMatchIndices   []int    `json:"relevant_sources"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// SourceReference attributes part of an answer to a retrieved chunk.
type SourceReference struct {
	Name           string  `json:"name"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float64 `json:"relevance_score"`
	IsExternal     bool    `json:"is_external"`
	URL            string  `json:"url,omitempty"`
	ChunkID        string  `json:"chunk_id"`
	SourceID       string  `json:"source_id"`
}

// SuggestionType classifies an enrichment suggestion.
type SuggestionType string

const (
	SuggestionDocument       SuggestionType = "document"
	SuggestionExternalSource SuggestionType = "external_source"
)

// Suggestion tells the caller how the knowledge base could be improved.
type Suggestion struct {
	Type                    SuggestionType `json:"type"`
	Suggestion              string         `json:"suggestion"`
	Priority                string         `json:"priority"`
	Reasoning               string         `json:"reasoning"`
	AutoEnrichmentAvailable bool           `json:"auto_enrichment_available"`
	ExternalSourceURL       string         `json:"external_source_url,omitempty"`
}

// FinalResponse is returned once per query.
type FinalResponse struct {
	Query              string            `json:"query"`
	Answer             string            `json:"answer"`
	Confidence         float64           `json:"confidence"`
	IsComplete         bool              `json:"is_complete"`
	Sources            []SourceReference `json:"sources"`
	MissingInformation []string          `json:"missing_info"`
	Reasoning          string            `json:"reasoning,omitempty"`
	EnrichmentApplied  bool              `json:"enrichment_applied"`
	EnrichmentSources  []string          `json:"enrichment_sources"`
	Suggestions        []Suggestion      `json:"enrichment_suggestions"`
	Enrichment         *enrich.Outcome   `json:"enrichment,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
}

// RunOptions overrides pipeline defaults for one call.
type RunOptions struct {
	// TopK overrides the configured retrieval depth when positive.
	TopK int
	// AllowEnrichment permits one enrichment cycle for this query.
	AllowEnrichment bool
}
