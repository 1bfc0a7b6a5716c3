package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/enrichrag/contrib/vector/inmemory"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/embedder"
	"github.com/sweetpotato0/enrichrag/vector"
)

var keywords = []string{"vacation", "salary", "remote", "security"}

type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, kw := range keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}

func (e keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := e.Embed(ctx, text)
		out[i] = vec
	}
	return out, nil
}

func (keywordEmbedder) Dimension() int { return len(keywords) + 1 }

type failingStore struct {
	vector.Store
}

func (failingStore) Count(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Get(context.Context, string) (*vector.Embedding, error) {
	return nil, errors.New("connection refused")
}

type distanceStore struct {
	hits []vector.Hit
}

func (d *distanceStore) Upsert(context.Context, ...*vector.Embedding) error { return nil }
func (d *distanceStore) Search(context.Context, []float32, int) ([]vector.Hit, error) {
	return d.hits, nil
}
func (d *distanceStore) DeleteSource(context.Context, string) (int, error) { return 0, nil }
func (d *distanceStore) Get(context.Context, string) (*vector.Embedding, error) {
	return nil, errorskg.ErrNotFound
}
func (d *distanceStore) Count(context.Context) (int, error) { return len(d.hits), nil }
func (d *distanceStore) Metric() vector.Metric              { return vector.MetricL2Distance }

func newRetriever(store vector.Store) *Retriever {
	return New(store, embedder.NewGateway(keywordEmbedder{}), nil, WithTopK(3))
}

func TestRetrieveEmptyIndexReturnsNoDocuments(t *testing.T) {
	r := newRetriever(inmemory.NewVectorStore())
	_, err := r.Retrieve(context.Background(), "vacation policy", 0)
	if !errors.Is(err, errorskg.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestRetrieveRanksAndNormalises(t *testing.T) {
	ctx := context.Background()
	r := newRetriever(inmemory.NewVectorStore())
	n, err := r.IndexDocuments(ctx,
		document.Document{ID: "hr", Title: "HR Handbook", Content: "Employees receive 20 vacation days per year."},
		document.Document{ID: "it", Title: "IT Policy", Content: "Security patches are applied weekly."},
	)
	if err != nil {
		t.Fatalf("IndexDocuments error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}

	matches, err := r.Retrieve(ctx, "How many vacation days?", 0)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Chunk.SourceID != "hr" || matches[0].Chunk.SourceName != "HR Handbook" {
		t.Fatalf("unexpected top match %+v", matches[0].Chunk)
	}
	for _, m := range matches {
		if m.Score < 0 || m.Score > 1 {
			t.Fatalf("score out of range: %f", m.Score)
		}
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("matches not ordered: %f <= %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].Chunk.IsExternal() {
		t.Fatalf("ingested chunk must not be external")
	}
}

func TestRetrieveNormalisesDistanceMetric(t *testing.T) {
	store := &distanceStore{hits: []vector.Hit{
		{Embedding: &vector.Embedding{ID: "far", SourceID: "a", Text: "far"}, Raw: 3},
		{Embedding: &vector.Embedding{ID: "near", SourceID: "b", Text: "near"}, Raw: 0},
	}}
	r := newRetriever(store)
	matches, err := r.Retrieve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if matches[0].Chunk.ID != "near" || matches[0].Score != 1 {
		t.Fatalf("expected exact match first with score 1, got %+v", matches[0])
	}
	if matches[1].Score != 0.25 {
		t.Fatalf("expected 1/(1+3)=0.25, got %f", matches[1].Score)
	}
}

func TestRetrieveWrapsIndexFailure(t *testing.T) {
	r := newRetriever(failingStore{})
	_, err := r.Retrieve(context.Background(), "vacation", 1)
	if !errors.Is(err, errorskg.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestIndexDocumentsReplacesSource(t *testing.T) {
	ctx := context.Background()
	r := newRetriever(inmemory.NewVectorStore())
	doc := document.Document{ID: "hr", Title: "HR", Content: "Vacation is 20 days."}
	if _, err := r.IndexDocuments(ctx, doc); err != nil {
		t.Fatalf("first index: %v", err)
	}
	doc.Content = "Vacation is 25 days."
	if _, err := r.IndexDocuments(ctx, doc); err != nil {
		t.Fatalf("second index: %v", err)
	}
	count, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected re-index to replace chunks, count=%d", count)
	}

	removed, err := r.DeleteSource(ctx, "hr")
	if err != nil || removed != 1 {
		t.Fatalf("DeleteSource = %d, %v", removed, err)
	}
}

func TestHasChunk(t *testing.T) {
	ctx := context.Background()
	r := newRetriever(inmemory.NewVectorStore())
	chunk := document.Chunk{
		ID:       "enriched_wikipedia_abc_chunk_1",
		SourceID: "enriched_wikipedia_abc",
		Kind:     document.KindExternal,
		Content:  "Vacation accrues monthly.",
		Vector:   []float32{1, 0, 0, 0, 0.1},
	}
	if err := r.Upsert(ctx, []document.Chunk{chunk}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if ok, err := r.HasChunk(ctx, chunk.ID); err != nil || !ok {
		t.Fatalf("HasChunk = %v, %v; want true", ok, err)
	}
	if _, err := r.DeleteSource(ctx, chunk.SourceID); err != nil {
		t.Fatalf("DeleteSource error: %v", err)
	}
	if ok, err := r.HasChunk(ctx, chunk.ID); err != nil || ok {
		t.Fatalf("HasChunk after delete = %v, %v; want false", ok, err)
	}

	if _, err := newRetriever(failingStore{}).HasChunk(ctx, chunk.ID); !errors.Is(err, errorskg.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestIndexDocumentsRejectsEmptyContent(t *testing.T) {
	r := newRetriever(inmemory.NewVectorStore())
	_, err := r.IndexDocuments(context.Background(), document.Document{ID: "empty", Content: "   "})
	if !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
