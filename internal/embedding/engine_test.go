package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(sim-1.0) > 1e-9 {
			t.Errorf("expected 1.0, got %f", sim)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(sim) > 1e-9 {
			t.Errorf("expected 0.0, got %f", sim)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		sim, _ := CosineSimilarity([]float32{1, 1}, []float32{-1, -1})
		if math.Abs(sim+1.0) > 1e-9 {
			t.Errorf("expected -1.0, got %f", sim)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
			t.Error("expected error for mismatched dimensions")
		}
	})

	t.Run("zero magnitude", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sim != 0 {
			t.Errorf("expected 0 for zero vector, got %f", sim)
		}
	})
}

func TestNewEngine_UnsupportedProvider(t *testing.T) {
	if _, err := NewEngine(Config{Provider: "duckdb"}); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNewGenAIEngine_RequiresKey(t *testing.T) {
	if _, err := NewGenAIEngine("", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}
