package document

import (
	"fmt"
	"sync/atomic"

	"github.com/sweetpotato0/enrichrag/vector"
)

// Kind distinguishes user-provided content from enrichment fetched externally.
type Kind string

const (
	KindDocument Kind = "document"
	KindExternal Kind = "external"
)

// Metadata keys the index uses to round-trip chunk provenance.
const (
	MetaSourceName = "source_name"
	MetaKind       = "source_kind"
	MetaURL        = "url"
	MetaTitle      = "title"
	MetaSource     = "source"
)

// Document represents a knowledge source that can be chunked and indexed.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk represents an indexed slice of a document or an enrichment result.
// Chunks are immutable once created; they are removed only by deleting their source.
type Chunk struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"source_id"`   // Owning document or enrichment source
	SourceName string         `json:"source_name"` // Display name used in attribution
	Kind       Kind           `json:"source_kind"`
	Content    string         `json:"content"`
	Ordinal    int            `json:"ordinal"`
	Vector     []float32      `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

var (
	docCounter   atomic.Int64
	chunkCounter atomic.Int64
)

// EnsureDocumentID makes sure every document has a stable identifier.
func EnsureDocumentID(doc *Document) {
	if doc == nil || doc.ID != "" {
		return
	}
	doc.ID = fmt.Sprintf("doc_%d", docCounter.Add(1))
}

// NextChunkID returns a globally unique chunk identifier derived from document ID.
func NextChunkID(docID string) string {
	next := chunkCounter.Add(1)
	if docID == "" {
		return fmt.Sprintf("chunk_%d", next)
	}
	return fmt.Sprintf("%s_chunk_%d", docID, next)
}

// Name returns the title when present, the ID otherwise.
func (d Document) Name() string {
	if d.Title != "" {
		return d.Title
	}
	return d.ID
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Metadata = vector.CloneMetadata(d.Metadata)
	return out
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	out.Metadata = vector.CloneMetadata(c.Metadata)
	if c.Vector != nil {
		out.Vector = append([]float32(nil), c.Vector...)
	}
	return out
}

// IsExternal reports whether the chunk came from enrichment.
func (c Chunk) IsExternal() bool {
	return c.Kind == KindExternal
}

// URL returns the provenance URL recorded in metadata, if any.
func (c Chunk) URL() string {
	if v, ok := c.Metadata[MetaURL].(string); ok {
		return v
	}
	return ""
}

// Embedding converts the chunk into the record stored by a vector.Store.
func (c Chunk) Embedding() *vector.Embedding {
	meta := vector.CloneMetadata(c.Metadata)
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta[MetaSourceName] = c.SourceName
	meta[MetaKind] = string(c.Kind)
	return &vector.Embedding{
		ID:       c.ID,
		SourceID: c.SourceID,
		Vector:   c.Vector,
		Text:     c.Content,
		Metadata: meta,
	}
}

// FromEmbedding restores a chunk from a stored record.
func FromEmbedding(e *vector.Embedding) Chunk {
	if e == nil {
		return Chunk{}
	}
	meta := vector.CloneMetadata(e.Metadata)
	chunk := Chunk{
		ID:       e.ID,
		SourceID: e.SourceID,
		Content:  e.Text,
		Vector:   e.Vector,
		Kind:     KindDocument,
	}
	if name, ok := meta[MetaSourceName].(string); ok {
		chunk.SourceName = name
		delete(meta, MetaSourceName)
	}
	if kind, ok := meta[MetaKind].(string); ok {
		if Kind(kind) == KindExternal {
			chunk.Kind = KindExternal
		}
		delete(meta, MetaKind)
	}
	if chunk.SourceName == "" {
		chunk.SourceName = e.SourceID
	}
	if len(meta) > 0 {
		chunk.Metadata = meta
	}
	return chunk
}
