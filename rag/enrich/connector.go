// Package enrich fills knowledge gaps from trusted external sources. Given an
// assessed answer that is not complete it selects connectors, fetches from them
// concurrently, and commits the normalised results into the vector index as
// external chunks.
package enrich

import (
	"context"

	"github.com/sweetpotato0/enrichrag/vector"
)

// Well-known connector names.
const (
	SourceWikipedia = "wikipedia"
	SourceArxiv     = "arxiv"
	SourcePubMed    = "pubmed"
	SourceWebSearch = "web_search"
)

// DefaultPriorities is the registry ordering used when a connector is
// registered without an explicit priority. Lower runs first.
var DefaultPriorities = map[string]int{
	SourceWikipedia: 1,
	SourceArxiv:     2,
	SourcePubMed:    3,
	SourceWebSearch: 4,
}

// Result is one item returned by a connector. It is not part of the index
// until the orchestrator commits it.
type Result struct {
	Source   string         `json:"source"` // connector name
	Title    string         `json:"title"`
	URL      string         `json:"url,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"` // connector specific extras such as authors
}

// Clone returns a copy safe to mutate.
func (r Result) Clone() Result {
	out := r
	out.Metadata = vector.CloneMetadata(r.Metadata)
	return out
}

// Connector searches one external knowledge source.
//
// Search returns errors.ErrNoResults when the source answered but had nothing
// for the query, and wraps errors.ErrTransient for failures worth one retry
// (network errors, HTTP 5xx, 429). Any other error is treated as permanent.
type Connector interface {
	Name() string
	Label() string
	Description() string
	Search(ctx context.Context, query string) ([]Result, error)
}
