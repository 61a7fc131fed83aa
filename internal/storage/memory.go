package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/models"
)

// MemoryStore keeps identities in process memory. It backs tests and the
// "memory" database driver and mirrors the Postgres uniqueness rules.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]models.Identity
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[uuid.UUID]models.Identity),
		now:        time.Now,
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) ListWithFeatures(ctx context.Context) ([]models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Identity, 0, len(s.identities))
	for _, id := range s.identities {
		if id.Enrolled() {
			out = append(out, clone(id))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, ok := s.identities[id]
	if !ok {
		return models.Identity{}, models.ErrNotFound
	}
	return clone(found), nil
}

func (s *MemoryStore) GetByDisplayName(ctx context.Context, name string, isGuest bool) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.identities {
		if id.DisplayName == name && id.IsGuest == isGuest {
			return clone(id), nil
		}
	}
	return models.Identity{}, models.ErrNotFound
}

func (s *MemoryStore) Insert(ctx context.Context, id models.Identity) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(id, uuid.Nil) {
		return models.Identity{}, models.ErrNameTaken
	}

	now := s.now()
	id.ID = uuid.New()
	id.CreatedAt = now
	id.UpdatedAt = now
	id = clone(id)
	s.identities[id.ID] = id
	return clone(id), nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, upd models.IdentityUpdate) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.identities[id]
	if !ok {
		return models.Identity{}, models.ErrNotFound
	}

	next := upd.Apply(current)
	if s.nameTakenLocked(next, id) {
		return models.Identity{}, models.ErrNameTaken
	}
	next.UpdatedAt = s.now()
	s.identities[id] = next
	return clone(next), nil
}

// nameTakenLocked enforces unique display names among registered identities.
func (s *MemoryStore) nameTakenLocked(id models.Identity, self uuid.UUID) bool {
	if id.IsGuest || id.DisplayName == "" {
		return false
	}
	for otherID, other := range s.identities {
		if otherID != self && !other.IsGuest && other.DisplayName == id.DisplayName {
			return true
		}
	}
	return false
}

func clone(id models.Identity) models.Identity {
	if id.FeatureVector != nil {
		id.FeatureVector = append([]float32(nil), id.FeatureVector...)
	}
	return id
}

// MemoryLocker serializes guest creation within one process.
type MemoryLocker struct {
	sem chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{sem: make(chan struct{}, 1)}
}

func (l *MemoryLocker) LockGuestCreation(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
