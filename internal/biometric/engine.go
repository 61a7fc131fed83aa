package biometric

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"

	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

// Match is the outcome of a population scan.
type Match struct {
	Identity models.Identity
	Score    float64
}

// Engine finds the best candidate for a feature vector by a linear scan.
// No index is kept: populations are small and every call sees a fresh snapshot.
type Engine struct {
	Threshold float64
	// Dimension is the embedding size enforced on input vectors. Zero disables the check.
	Dimension int
}

func NewEngine(threshold float64, dimension int) *Engine {
	return &Engine{Threshold: threshold, Dimension: dimension}
}

// ValidateInput rejects vectors that can never be compared: empty, non-finite,
// zero magnitude or of the wrong dimension. Errors wrap models.ErrInvalidInput.
func (e *Engine) ValidateInput(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: feature vector is empty", models.ErrInvalidInput)
	}
	if e.Dimension > 0 && len(v) != e.Dimension {
		return fmt.Errorf("%w: feature vector has %d dimensions, want %d", models.ErrInvalidInput, len(v), e.Dimension)
	}
	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: feature vector contains non-finite values", models.ErrInvalidInput)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, ErrZeroMagnitude)
	}
	return nil
}

// Best returns the highest-scoring candidate regardless of the threshold.
// Candidates without a vector or whose comparison fails are skipped.
// ok is false when no candidate could be scored.
//
// A strictly greater score replaces the running best. Exact ties go to the
// earlier CreatedAt, then to the smaller id, so the result does not depend on
// the order the store returned the population in.
func (e *Engine) Best(input []float32, candidates []models.Identity) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, c := range candidates {
		if !c.Enrolled() {
			continue
		}
		score, err := Similarity(input, c.FeatureVector)
		if err != nil {
			observability.CandidatesSkipped.Inc()
			slog.Debug("skip candidate", "identity_id", c.ID, "error", err)
			continue
		}
		if !found || score > best.Score || (score == best.Score && earlier(c, best.Identity)) {
			best = Match{Identity: c, Score: score}
			found = true
		}
	}
	return best, found
}

// FindBestMatch returns the best candidate if its score reaches the threshold.
func (e *Engine) FindBestMatch(input []float32, candidates []models.Identity) (Match, bool) {
	best, ok := e.Best(input, candidates)
	if !ok || !e.Accepts(best.Score) {
		return Match{}, false
	}
	return best, true
}

// Accepts reports whether score clears the threshold. The bound is inclusive.
func (e *Engine) Accepts(score float64) bool {
	return score >= e.Threshold
}

func earlier(a, b models.Identity) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
