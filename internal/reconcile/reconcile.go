// Package reconcile finds guests that were enrolled twice for the same face,
// for instance by writers that did not take the guest-creation lock.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/biometric"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Identity, error)
	ListWithFeatures(ctx context.Context) ([]models.Identity, error)
}

// Duplicate pairs a guest with another guest its face matches.
type Duplicate struct {
	Guest models.Identity
	Other models.Identity
	Score float64
}

type Reconciler struct {
	store        Store
	engine       *biometric.Engine
	storeTimeout time.Duration
}

func New(store Store, engine *biometric.Engine, storeTimeout time.Duration) *Reconciler {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Reconciler{store: store, engine: engine, storeTimeout: storeTimeout}
}

// HandleEvent checks every newly created guest. Other event types are ignored.
func (r *Reconciler) HandleEvent(ctx context.Context, ev models.IdentityEvent) error {
	if ev.Type != models.EventGuestCreated {
		return nil
	}

	dups, err := r.FindDuplicates(ctx, ev.IdentityID)
	if err != nil {
		return err
	}
	for _, d := range dups {
		observability.GuestDuplicates.Inc()
		slog.Warn("duplicate guest detected",
			"identity_id", d.Guest.ID,
			"duplicate_of", d.Other.ID,
			"score", d.Score)
	}
	return nil
}

// FindDuplicates returns the other guests whose faces match the guest with id.
// An identity that no longer exists or is no longer a guest has none.
func (r *Reconciler) FindDuplicates(ctx context.Context, id uuid.UUID) ([]Duplicate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	guest, err := r.store.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, identity.StoreError("get guest", err)
	}
	if !guest.IsGuest || !guest.Enrolled() {
		return nil, nil
	}

	population, err := r.store.ListWithFeatures(ctx)
	if err != nil {
		return nil, identity.StoreError("list population", err)
	}

	var dups []Duplicate
	for _, other := range population {
		if other.ID == guest.ID || !other.IsGuest {
			continue
		}
		score, err := biometric.Similarity(guest.FeatureVector, other.FeatureVector)
		if err != nil {
			observability.CandidatesSkipped.Inc()
			continue
		}
		if r.engine.Accepts(score) {
			dups = append(dups, Duplicate{Guest: guest, Other: other, Score: score})
		}
	}
	return dups, nil
}
