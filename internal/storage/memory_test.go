package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Insert(ctx, models.Identity{
		DisplayName:   "alice",
		FeatureVector: []float32{1, 0},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byName, err := s.GetByDisplayName(ctx, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = s.GetByDisplayName(ctx, "alice", true)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_NameUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Insert(ctx, models.Identity{DisplayName: "bob"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, models.Identity{DisplayName: "bob"})
	assert.ErrorIs(t, err, models.ErrNameTaken)

	// guests are not constrained
	g1, err := s.Insert(ctx, models.Identity{DisplayName: "bob", IsGuest: true})
	require.NoError(t, err)
	_, err = s.Insert(ctx, models.Identity{DisplayName: "bob", IsGuest: true})
	require.NoError(t, err)

	// promoting a guest into a taken name fails
	_, err = s.Update(ctx, g1.ID, models.IdentityUpdate{Promote: true})
	assert.ErrorIs(t, err, models.ErrNameTaken)
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	guest, err := s.Insert(ctx, models.Identity{
		DisplayName:   "gabcde123",
		IsGuest:       true,
		FeatureVector: []float32{0, 1},
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, guest.ID, models.IdentityUpdate{
		DisplayName: ptr("carol"),
		Gender:      ptr(models.GenderFemale),
		Promote:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, updated.ID)
	assert.Equal(t, "carol", updated.DisplayName)
	assert.Equal(t, models.GenderFemale, updated.Gender)
	assert.False(t, updated.IsGuest)
	assert.Equal(t, []float32{0, 1}, updated.FeatureVector)
	assert.Equal(t, guest.CreatedAt, updated.CreatedAt)

	_, err = s.Update(ctx, uuid.New(), models.IdentityUpdate{Promote: true})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_ListWithFeatures(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, err := s.Insert(ctx, models.Identity{DisplayName: "first", FeatureVector: []float32{1}})
	require.NoError(t, err)
	_, err = s.Insert(ctx, models.Identity{DisplayName: "no-vector"})
	require.NoError(t, err)
	second, err := s.Insert(ctx, models.Identity{DisplayName: "second", FeatureVector: []float32{2}})
	require.NoError(t, err)

	list, err := s.ListWithFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	// returned vectors are copies
	list[0].FeatureVector[0] = 99
	again, err := s.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, again.FeatureVector)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	_, err := s.ListWithFeatures(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Insert(ctx, models.Identity{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()

	unlock, err := l.LockGuestCreation(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.LockGuestCreation(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotent

	unlock2, err := l.LockGuestCreation(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.LockGuestCreation(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMemoryObjectStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryObjectStore()

	require.NoError(t, s.PutObject(ctx, "avatars/a.png", []byte("png"), "image/png"))

	data, ct, err := s.GetObject(ctx, "avatars/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", ct)

	_, _, err = s.GetObject(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
