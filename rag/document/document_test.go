package document

import (
	"strings"
	"testing"
)

func TestChunkEmbeddingRoundTrip(t *testing.T) {
	chunk := Chunk{
		ID:         "c1",
		SourceID:   "enriched_wikipedia_abc",
		SourceName: "Wikipedia: Photon",
		Kind:       KindExternal,
		Content:    "A photon is an elementary particle.",
		Vector:     []float32{1, 2},
		Metadata:   map[string]any{MetaURL: "https://en.wikipedia.org/wiki/Photon"},
	}

	emb := chunk.Embedding()
	if emb.SourceID != chunk.SourceID || emb.Text != chunk.Content {
		t.Fatalf("unexpected embedding %#v", emb)
	}
	if _, ok := chunk.Metadata[MetaKind]; ok {
		t.Fatalf("Embedding must not mutate chunk metadata")
	}

	back := FromEmbedding(emb)
	if back.Kind != KindExternal || !back.IsExternal() {
		t.Fatalf("expected external kind, got %q", back.Kind)
	}
	if back.SourceName != "Wikipedia: Photon" {
		t.Fatalf("unexpected source name %q", back.SourceName)
	}
	if back.URL() != "https://en.wikipedia.org/wiki/Photon" {
		t.Fatalf("unexpected url %q", back.URL())
	}
	if _, ok := back.Metadata[MetaSourceName]; ok {
		t.Fatalf("reserved keys should be stripped from restored metadata")
	}
}

func TestFromEmbeddingDefaults(t *testing.T) {
	back := FromEmbedding(Chunk{ID: "c", SourceID: "handbook", Content: "x"}.Embedding())
	if back.Kind != KindDocument {
		t.Fatalf("expected document kind, got %q", back.Kind)
	}
	if back.SourceName != "handbook" {
		t.Fatalf("expected source id fallback, got %q", back.SourceName)
	}
	if FromEmbedding(nil).ID != "" {
		t.Fatalf("expected zero chunk for nil embedding")
	}
}

func TestIDsAreUnique(t *testing.T) {
	doc := Document{}
	EnsureDocumentID(&doc)
	if !strings.HasPrefix(doc.ID, "doc_") {
		t.Fatalf("unexpected id %q", doc.ID)
	}
	a, b := NextChunkID(doc.ID), NextChunkID(doc.ID)
	if a == b {
		t.Fatalf("expected unique chunk ids, got %q twice", a)
	}
	if doc.Name() != doc.ID {
		t.Fatalf("Name should fall back to ID")
	}
}
