package biometric

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

func identity(vec []float32, created time.Time) models.Identity {
	return models.Identity{ID: uuid.New(), FeatureVector: vec, CreatedAt: created}
}

func TestEngine_ValidateInput(t *testing.T) {
	e := NewEngine(DefaultThreshold, 3)

	tests := []struct {
		name    string
		vec     []float32
		wantErr bool
	}{
		{"valid", []float32{1, 2, 3}, false},
		{"empty", nil, true},
		{"wrong dimension", []float32{1, 2}, true},
		{"zero magnitude", []float32{0, 0, 0}, true},
		{"nan", []float32{1, float32(math.NaN()), 3}, true},
		{"inf", []float32{1, float32(math.Inf(1)), 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ValidateInput(tt.vec)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngine_ValidateInput_DimensionDisabled(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	assert.NoError(t, e.ValidateInput([]float32{1}))
	assert.NoError(t, e.ValidateInput([]float32{1, 2, 3, 4, 5}))
}

func TestEngine_FindBestMatch_PicksHighest(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	now := time.Now()

	far := identity([]float32{0, 1, 0}, now)
	near := identity([]float32{1, 0.1, 0}, now.Add(time.Second))
	mid := identity([]float32{1, 1, 0}, now.Add(2*time.Second))

	m, ok := e.FindBestMatch([]float32{1, 0, 0}, []models.Identity{far, mid, near})
	require.True(t, ok)
	assert.Equal(t, near.ID, m.Identity.ID)
	assert.Greater(t, m.Score, 0.99)
}

func TestEngine_FindBestMatch_EmptyPopulation(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)

	m, ok := e.FindBestMatch([]float32{1, 0}, nil)
	assert.False(t, ok)
	assert.Equal(t, 0.0, m.Score)
	assert.Equal(t, uuid.Nil, m.Identity.ID)
}

func TestEngine_FindBestMatch_BelowThreshold(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	c := identity([]float32{0, 1}, time.Now())

	_, ok := e.FindBestMatch([]float32{1, 0}, []models.Identity{c})
	assert.False(t, ok)

	best, ok := e.Best([]float32{1, 0}, []models.Identity{c})
	require.True(t, ok)
	assert.Equal(t, c.ID, best.Identity.ID)
	assert.InDelta(t, 0.0, best.Score, 1e-9)
}

func TestEngine_SkipsBadCandidates(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	now := time.Now()

	wrongDim := identity([]float32{1, 0}, now)
	zero := identity([]float32{0, 0, 0}, now)
	unenrolled := identity(nil, now)
	good := identity([]float32{1, 0, 0}, now)

	m, ok := e.FindBestMatch([]float32{1, 0, 0}, []models.Identity{wrongDim, zero, unenrolled, good})
	require.True(t, ok)
	assert.Equal(t, good.ID, m.Identity.ID)
}

func TestEngine_NonFiniteCandidateDoesNotHideMatch(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	now := time.Now()

	// The corrupt vector is scanned first and would otherwise seed the running best.
	poisoned := identity([]float32{float32(math.Inf(1)), 1, 0}, now.Add(-time.Hour))
	nan := identity([]float32{float32(math.NaN()), 0, 1}, now.Add(-time.Minute))
	good := identity([]float32{1, 0, 0}, now)

	m, ok := e.FindBestMatch([]float32{1, 0, 0}, []models.Identity{poisoned, nan, good})
	require.True(t, ok)
	assert.Equal(t, good.ID, m.Identity.ID)
	assert.InDelta(t, 1.0, m.Score, 1e-9)

	_, ok = e.Best([]float32{1, 0, 0}, []models.Identity{poisoned, nan})
	assert.False(t, ok)
}

func TestEngine_AllCandidatesBad(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)

	_, ok := e.Best([]float32{1, 0, 0}, []models.Identity{
		identity([]float32{1, 0}, time.Now()),
		identity([]float32{0, 0, 0}, time.Now()),
	})
	assert.False(t, ok)
}

func TestEngine_ThresholdBoundary(t *testing.T) {
	input := []float32{1, 0.4, -0.2}
	c := identity([]float32{0.3, 1, 0.8}, time.Now())

	score, err := Similarity(input, c.FeatureVector)
	require.NoError(t, err)

	exact := NewEngine(score, 0)
	m, ok := exact.FindBestMatch(input, []models.Identity{c})
	require.True(t, ok, "score equal to threshold must be accepted")
	assert.Equal(t, c.ID, m.Identity.ID)

	above := NewEngine(math.Nextafter(score, 2), 0)
	_, ok = above.FindBestMatch(input, []models.Identity{c})
	assert.False(t, ok, "score just below threshold must be rejected")
}

func TestEngine_TieBreak(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	now := time.Now()
	vec := []float32{1, 1}

	older := identity(vec, now)
	newer := identity(vec, now.Add(time.Minute))

	for _, order := range [][]models.Identity{{older, newer}, {newer, older}} {
		m, ok := e.FindBestMatch(vec, order)
		require.True(t, ok)
		assert.Equal(t, older.ID, m.Identity.ID)
	}
}

func TestEngine_TieBreak_SameCreatedAt(t *testing.T) {
	e := NewEngine(DefaultThreshold, 0)
	now := time.Now()
	vec := []float32{1, 1}

	a := models.Identity{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), FeatureVector: vec, CreatedAt: now}
	b := models.Identity{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), FeatureVector: vec, CreatedAt: now}

	for _, order := range [][]models.Identity{{a, b}, {b, a}} {
		m, ok := e.FindBestMatch(vec, order)
		require.True(t, ok)
		assert.Equal(t, a.ID, m.Identity.ID)
	}
}
