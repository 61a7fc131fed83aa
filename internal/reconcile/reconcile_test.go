package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/biometric"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/storage"
)

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	g1, err := store.Insert(ctx, models.Identity{DisplayName: "g1", IsGuest: true, FeatureVector: []float32{1, 0}})
	require.NoError(t, err)
	g2, err := store.Insert(ctx, models.Identity{DisplayName: "g2", IsGuest: true, FeatureVector: []float32{0.95, 0.05}})
	require.NoError(t, err)
	_, err = store.Insert(ctx, models.Identity{DisplayName: "g3", IsGuest: true, FeatureVector: []float32{0, 1}})
	require.NoError(t, err)
	registered, err := store.Insert(ctx, models.Identity{DisplayName: "alice", FeatureVector: []float32{1, 0}})
	require.NoError(t, err)

	r := New(store, biometric.NewEngine(biometric.DefaultThreshold, 0), time.Second)

	dups, err := r.FindDuplicates(ctx, g2.ID)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, g2.ID, dups[0].Guest.ID)
	assert.Equal(t, g1.ID, dups[0].Other.ID)
	assert.Greater(t, dups[0].Score, 0.9)

	none, err := r.FindDuplicates(ctx, registered.ID)
	require.NoError(t, err)
	assert.Empty(t, none, "registered identities are not reconciled")

	missing, err := r.FindDuplicates(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	guest, err := store.Insert(ctx, models.Identity{DisplayName: "g1", IsGuest: true, FeatureVector: []float32{1, 0}})
	require.NoError(t, err)

	r := New(store, biometric.NewEngine(biometric.DefaultThreshold, 0), time.Second)

	assert.NoError(t, r.HandleEvent(ctx, models.NewIdentityEvent(models.EventGuestCreated, guest, 0)))
	assert.NoError(t, r.HandleEvent(ctx, models.NewIdentityEvent(models.EventFaceLogin, guest, 0.9)))
}
