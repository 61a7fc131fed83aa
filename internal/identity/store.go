package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/models"
)

// Store is the persistence contract the lifecycle depends on.
type Store interface {
	// ListWithFeatures returns every identity with a non-empty feature vector,
	// ordered by creation time.
	ListWithFeatures(ctx context.Context) ([]models.Identity, error)
	// GetByID returns models.ErrNotFound when no identity has the id.
	GetByID(ctx context.Context, id uuid.UUID) (models.Identity, error)
	// GetByDisplayName looks the name up among identities whose IsGuest equals isGuest.
	GetByDisplayName(ctx context.Context, name string, isGuest bool) (models.Identity, error)
	// Insert assigns the id and timestamps. A uniqueness violation on a
	// non-guest display name yields models.ErrNameTaken.
	Insert(ctx context.Context, id models.Identity) (models.Identity, error)
	// Update applies upd to one record atomically and returns the result.
	Update(ctx context.Context, id uuid.UUID, upd models.IdentityUpdate) (models.Identity, error)
}

// Locker serializes guest creation so that two concurrent first sightings of
// the same face cannot both insert a guest.
type Locker interface {
	LockGuestCreation(ctx context.Context) (unlock func(), err error)
}

// Publisher receives lifecycle events.
type Publisher interface {
	PublishIdentityEvent(ctx context.Context, ev models.IdentityEvent) error
}

// CredentialHasher hashes and verifies account secrets.
type CredentialHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

type noopPublisher struct{}

func (noopPublisher) PublishIdentityEvent(context.Context, models.IdentityEvent) error { return nil }
