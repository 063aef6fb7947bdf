package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/hejijunhao/tagger/internal/model"
)

// Cosine returns the cosine similarity of a and b. Zero-norm vectors yield 0.
// Callers must ensure equal, non-zero length.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarities scores one image vector against every text vector.
// Malformed embeddings are reported as backend failures rather than scored.
func Similarities(img []float32, text [][]float32) ([]float64, error) {
	if err := checkVector(img); err != nil {
		return nil, model.WrapError(model.ErrBackend, "similarity", fmt.Errorf("image embedding: %w", err))
	}
	if len(text) == 0 {
		return nil, model.WrapError(model.ErrBackend, "similarity", errors.New("no text embeddings"))
	}

	scores := make([]float64, len(text))
	for j, t := range text {
		if len(t) != len(img) {
			return nil, model.WrapError(model.ErrBackend, "similarity",
				fmt.Errorf("text embedding %d: dimension %d, image dimension %d", j, len(t), len(img)))
		}
		if err := checkVector(t); err != nil {
			return nil, model.WrapError(model.ErrBackend, "similarity", fmt.Errorf("text embedding %d: %w", j, err))
		}
		scores[j] = Cosine(img, t)
	}
	return scores, nil
}

func checkVector(v []float32) error {
	if len(v) == 0 {
		return errors.New("empty vector")
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
	}
	return nil
}
