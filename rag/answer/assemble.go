package answer

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
)

const (
	missingNoDocuments = "No documents available in the knowledge base"
	missingTimeout     = "pipeline deadline exceeded before an answer was produced"
	timeoutAnswer      = "I could not produce an answer within the time limit. Please try again."
	maxDocSuggestions  = 3
)

// noDocumentsAssessment is the fixed answer used when retrieval found nothing
// usable. The generator is not invoked for it.
func noDocumentsAssessment(text string) AssessedAnswer {
	return AssessedAnswer{
		Answer:             text,
		Confidence:         0,
		IsComplete:         false,
		MissingInformation: []string{missingNoDocuments},
		UsedMatchIndices:   []int{},
	}
}

// attributeSources maps used indices onto the final match set. Only chunks present in
// matches can become sources.
func attributeSources(a AssessedAnswer, matches []retriever.Match, excerptLen int) []SourceReference {
	sources := make([]SourceReference, 0, len(a.UsedMatchIndices))
	seen := make(map[int]struct{}, len(a.UsedMatchIndices))
	for _, idx := range a.UsedMatchIndices {
		if idx < 0 || idx >= len(matches) {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		chunk := matches[idx].Chunk
		name := chunk.SourceName
		if name == "" {
			name = chunk.SourceID
		}
		sources = append(sources, SourceReference{
			Name:           name,
			Excerpt:        excerpt(chunk.Content, excerptLen),
			RelevanceScore: float64(matches[idx].Score),
			IsExternal:     chunk.IsExternal(),
			URL:            chunk.URL(),
			ChunkID:        chunk.ID,
			SourceID:       chunk.SourceID,
		})
	}
	return sources
}

// suggest lists what was fetched automatically, then which documents the
// user could upload to close the remaining gaps.
func suggest(query string, a AssessedAnswer, outcome *enrich.Outcome, noDocuments, allowEnrichment bool) []Suggestion {
	suggestions := make([]Suggestion, 0)
	if outcome != nil {
		for _, item := range outcome.Items {
			suggestions = append(suggestions, Suggestion{
				Type:                    SuggestionExternalSource,
				Suggestion:              fmt.Sprintf("Fetched from %s: %s", item.Label, item.Title),
				Priority:                "high",
				Reasoning:               fmt.Sprintf("Automatically retrieved from trusted source (%s) to fill knowledge gaps", item.Label),
				AutoEnrichmentAvailable: true,
				ExternalSourceURL:       item.URL,
			})
		}
	}

	if noDocuments {
		suggestions = append(suggestions, Suggestion{
			Type:                    SuggestionDocument,
			Suggestion:              "Upload documents related to this topic",
			Priority:                "high",
			Reasoning:               "The knowledge base appears to be empty or doesn't contain relevant information",
			AutoEnrichmentAvailable: allowEnrichment,
		})
		return suggestions
	}

	for i, info := range a.MissingInformation {
		if i == maxDocSuggestions {
			break
		}
		priority := "medium"
		if len(suggestions) == 0 {
			priority = "high"
		}
		suggestions = append(suggestions, Suggestion{
			Type:                    SuggestionDocument,
			Suggestion:              "Upload documents containing information about: " + info,
			Priority:                priority,
			Reasoning:               fmt.Sprintf("This information is needed to fully answer the question: '%s'", query),
			AutoEnrichmentAvailable: allowEnrichment,
		})
	}
	return suggestions
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func trimForLog(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
