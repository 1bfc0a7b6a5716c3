package vector

import (
	"math"
	"testing"
)

func TestSimilarityNormalisesEveryMetric(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		raw    float32
		want   float32
	}{
		{"cosine similarity passes through", MetricCosineSimilarity, 0.8, 0.8},
		{"negative cosine clamps to zero", MetricCosineSimilarity, -0.4, 0},
		{"cosine distance zero is identical", MetricCosineDistance, 0, 1},
		{"cosine distance two is opposite", MetricCosineDistance, 2, 0},
		{"l2 zero is identical", MetricL2Distance, 0, 1},
		{"l2 one halves", MetricL2Distance, 1, 0.5},
		{"negative l2 treated as zero", MetricL2Distance, -3, 1},
		{"inner product shifted", MetricInnerProduct, 0, 0.5},
		{"nan becomes zero", MetricCosineSimilarity, float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.metric, tt.raw)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("Similarity(%s, %v) = %v, want %v", tt.metric, tt.raw, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("score %v outside [0,1]", got)
			}
		})
	}
}

func TestSimilarityIsMonotonicForDistances(t *testing.T) {
	prev := Similarity(MetricL2Distance, 0)
	for _, d := range []float32{0.1, 0.5, 1, 4, 100} {
		cur := Similarity(MetricL2Distance, d)
		if cur >= prev {
			t.Fatalf("expected decreasing similarity, %v then %v at distance %v", prev, cur, d)
		}
		prev = cur
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := CosineSimilarity([]float32{3, 0}, []float32{0, 2}); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
	if got := CosineSimilarity([]float32{2, 2}, []float32{1, 1}); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("expected scale invariance, got %v", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestEuclideanDistance(t *testing.T) {
	if got := EuclideanDistance([]float32{0, 0}, []float32{3, 4}); math.Abs(float64(got-5)) > 1e-6 {
		t.Fatalf("expected 5, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	if math.Abs(float64(vec[0]-0.6)) > 1e-6 || math.Abs(float64(vec[1]-0.8)) > 1e-6 {
		t.Fatalf("unexpected normalised vector %v", vec)
	}
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector should stay zero")
	}
}
