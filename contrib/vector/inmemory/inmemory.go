package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/vector"
)

// VectorStore implements vector.Store using in-memory storage.
// Records are copied on the way in and out so a reader never observes a
// half-written embedding while an upsert is in progress.
type VectorStore struct {
	embeddings map[string]*vector.Embedding
	mu         sync.RWMutex
}

var _ vector.Store = (*VectorStore)(nil)

// NewVectorStore creates a new in-memory vector store
func NewVectorStore() *VectorStore {
	return &VectorStore{
		embeddings: make(map[string]*vector.Embedding),
	}
}

// Upsert inserts or replaces embeddings by ID
func (s *VectorStore) Upsert(ctx context.Context, embeddings ...*vector.Embedding) error {
	prepared := make([]*vector.Embedding, 0, len(embeddings))
	for _, emb := range embeddings {
		if emb == nil {
			return fmt.Errorf("embedding cannot be nil")
		}
		if emb.ID == "" {
			return fmt.Errorf("embedding ID cannot be empty")
		}
		if len(emb.Vector) == 0 {
			return fmt.Errorf("embedding %s: vector cannot be empty", emb.ID)
		}
		prepared = append(prepared, clone(emb))
	}

	for _, emb := range prepared {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		s.embeddings[emb.ID] = emb
		s.mu.Unlock()
	}
	return nil
}

// Search finds embeddings similar to the query vector
func (s *VectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.Hit, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	hits := make([]vector.Hit, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		if len(emb.Vector) != len(queryVector) {
			continue
		}
		hits = append(hits, vector.Hit{
			Embedding: emb,
			Raw:       vector.CosineSimilarity(queryVector, emb.Vector),
		})
	}
	s.mu.RUnlock()

	// Ties break on ID so repeated queries return a stable order.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Raw == hits[j].Raw {
			return hits[i].Embedding.ID < hits[j].Embedding.ID
		}
		return hits[i].Raw > hits[j].Raw
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	for i := range hits {
		hits[i].Embedding = clone(hits[i].Embedding)
	}
	return hits, nil
}

// DeleteSource removes all embeddings owned by sourceID
func (s *VectorStore) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, emb := range s.embeddings {
		if emb.SourceID == sourceID {
			delete(s.embeddings, id)
			removed++
		}
	}
	return removed, nil
}

// Get retrieves a specific embedding by ID
func (s *VectorStore) Get(ctx context.Context, id string) (*vector.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, exists := s.embeddings[id]
	if !exists {
		return nil, fmt.Errorf("embedding %s: %w", id, errorskg.ErrNotFound)
	}
	return clone(emb), nil
}

// Count returns the number of embeddings
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.embeddings), nil
}

// Metric reports cosine similarity.
func (s *VectorStore) Metric() vector.Metric {
	return vector.MetricCosineSimilarity
}

func clone(e *vector.Embedding) *vector.Embedding {
	out := *e
	out.Vector = append([]float32(nil), e.Vector...)
	out.Metadata = vector.CloneMetadata(e.Metadata)
	return &out
}
