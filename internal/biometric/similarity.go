// Package biometric compares face feature vectors and searches a population
// for the best match.
package biometric

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("feature vector dimension mismatch")
	ErrZeroMagnitude     = errors.New("feature vector has zero magnitude")
	ErrNonFinite         = errors.New("feature vector has non-finite values")
)

// DefaultThreshold is the minimum cosine similarity accepted as a match.
const DefaultThreshold = 0.35

// Similarity returns the cosine similarity of a and b in [-1, 1].
// Accumulation happens in float64 so the result is symmetric in its arguments.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroMagnitude
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// NaN or Inf in either input, or an overflowing norm, lands here.
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, ErrNonFinite
	}
	// Clamp rounding noise.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim, nil
}
