package enrich

import (
	"strings"
)

var (
	academicTerms = []string{
		"research", "paper", "study", "studies", "theory", "theorem", "algorithm", "physics",
		"mathematic", "quantum", "neural", "machine learning", "deep learning",
		"arxiv", "preprint", "computer science", "statistics", "astronomy", "chemistry",
	}
	medicalTerms = []string{
		"disease", "symptom", "treatment", "therapy", "drug", "medication", "clinical",
		"medical", "medicine", "health", "patient", "diagnosis", "virus", "vaccine",
		"cancer", "diabetes", "infection", "gene", "protein", "pubmed", "dose",
	}
)

// topicFilters decide whether a domain-specific connector qualifies for a
// query. Connectors without a filter always qualify.
var topicFilters = map[string][]string{
	SourceArxiv:  academicTerms,
	SourcePubMed: medicalTerms,
}

// Select picks up to limit connectors for the query. Candidates keep registry
// priority order; academic and medical indexes qualify only when the query or
// the missing information mentions their topic, and web search is used only
// when slots remain after every other qualifying connector.
func Select(candidates []Connector, query string, missing []string, limit int) []Connector {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	text := strings.ToLower(query + " " + strings.Join(missing, " "))

	var (
		selected []Connector
		fallback []Connector
	)
	for _, c := range candidates {
		if c.Name() == SourceWebSearch {
			fallback = append(fallback, c)
			continue
		}
		if terms, ok := topicFilters[c.Name()]; ok && !mentionsAny(text, terms) {
			continue
		}
		selected = append(selected, c)
	}
	selected = append(selected, fallback...)
	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}

// SearchText builds the connector query from the user query and the first
// two missing-information items.
func SearchText(query string, missing []string) string {
	parts := []string{strings.TrimSpace(query)}
	for i, item := range missing {
		if i == 2 {
			break
		}
		if item = strings.TrimSpace(item); item != "" {
			parts = append(parts, item)
		}
	}
	return strings.Join(parts, " ")
}

func mentionsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
