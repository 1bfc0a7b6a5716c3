package vector

import (
	"context"
	"math"
)

// Metric names the native score an index returns for a match.
type Metric string

const (
	// MetricCosineSimilarity scores in [-1,1], higher is closer.
	MetricCosineSimilarity Metric = "cosine_similarity"
	// MetricCosineDistance scores in [0,2], lower is closer (pgvector <=>).
	MetricCosineDistance Metric = "cosine_distance"
	// MetricL2Distance scores in [0,inf), lower is closer (pgvector <->).
	MetricL2Distance Metric = "l2_distance"
	// MetricInnerProduct scores unit vectors in [-1,1], higher is closer.
	MetricInnerProduct Metric = "inner_product"
)

// Embedding represents a stored vector together with its text payload.
type Embedding struct {
	ID       string
	SourceID string // owning document or enrichment source; DeleteSource removes by it
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Hit is one nearest-neighbour match in the index's native metric.
type Hit struct {
	Embedding *Embedding
	Raw       float32
}

// Store defines the interface for vector storage and similarity search.
// Upsert must be atomic per embedding: concurrent readers observe either the
// previous or the new record, never a partial one.
type Store interface {
	// Upsert inserts or replaces embeddings by ID
	Upsert(ctx context.Context, embeddings ...*Embedding) error

	// Search returns up to topK hits ordered best first
	Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error)

	// DeleteSource removes every embedding owned by sourceID and reports how many were removed
	DeleteSource(ctx context.Context, sourceID string) (int, error)

	// Get retrieves a specific embedding by ID
	Get(ctx context.Context, id string) (*Embedding, error)

	// Count returns the number of embeddings
	Count(ctx context.Context) (int, error)

	// Metric reports the native score returned in Hit.Raw
	Metric() Metric
}

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// Similarity converts a native score into [0,1] where 1 means identical.
// Distances go through 1/(1+d) (L2) or 1-d (cosine); similarities are clamped,
// inner products are shifted from [-1,1].
func Similarity(metric Metric, raw float32) float32 {
	if math.IsNaN(float64(raw)) {
		return 0
	}
	var s float32
	switch metric {
	case MetricCosineDistance:
		s = 1 - raw
	case MetricL2Distance:
		if raw < 0 {
			raw = 0
		}
		s = 1 / (1 + raw)
	case MetricInnerProduct:
		s = (1 + raw) / 2
	default:
		s = raw
	}
	return Clamp01(s)
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// EuclideanDistance calculates the Euclidean distance between two vectors
func EuclideanDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return float32(math.Sqrt(sum))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
