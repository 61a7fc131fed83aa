// Package identity drives the identity lifecycle: guest creation on first
// sight of an unknown face, guest promotion on registration, and face or
// credential login.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/biometric"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

const (
	defaultStoreTimeout = 5 * time.Second
	guestNameAttempts   = 3
)

type Options struct {
	Store     Store
	Engine    *biometric.Engine
	Locker    Locker
	Hasher    CredentialHasher
	Publisher Publisher
	// StoreTimeout bounds every store call and the guest-creation lock wait.
	StoreTimeout time.Duration
}

type Service struct {
	store        Store
	engine       *biometric.Engine
	locker       Locker
	hasher       CredentialHasher
	publisher    Publisher
	storeTimeout time.Duration
	now          func() time.Time
}

func NewService(opts Options) *Service {
	s := &Service{
		store:        opts.Store,
		engine:       opts.Engine,
		locker:       opts.Locker,
		hasher:       opts.Hasher,
		publisher:    opts.Publisher,
		storeTimeout: opts.StoreTimeout,
		now:          time.Now,
	}
	if s.engine == nil {
		s.engine = biometric.NewEngine(biometric.DefaultThreshold, 0)
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	return s
}

// Registration is the outcome of Register.
type Registration struct {
	Identity models.Identity
	// Promoted is set when an existing guest was turned into the account.
	Promoted bool
	// Created is set when a brand-new identity was inserted.
	Created bool
	Score   float64
}

// FaceLogin is the outcome of LoginByFace.
type FaceLogin struct {
	Identity models.Identity
	Score    float64
	// GuestCreated is set when no match existed and a guest was enrolled.
	GuestCreated bool
}

// Register enrolls a named account. A guest whose face matches vec is promoted
// in place so that its id survives; otherwise a new identity is created.
func (s *Service) Register(ctx context.Context, profile models.Profile, vec []float32) (Registration, error) {
	if err := s.engine.ValidateInput(vec); err != nil {
		return Registration{}, err
	}
	if err := normalizeProfile(&profile); err != nil {
		return Registration{}, err
	}

	population, err := s.population(ctx)
	if err != nil {
		return Registration{}, err
	}
	match, matched := s.match("register", vec, population)

	if profile.DisplayName != "" {
		owner, err := s.getByDisplayName(ctx, profile.DisplayName, false)
		switch {
		case err == nil:
			// Re-registering the same face under its own name is a no-op, not a collision.
			if !matched || owner.ID != match.Identity.ID {
				return Registration{}, fmt.Errorf("%w: %s", models.ErrNameTaken, profile.DisplayName)
			}
		case errors.Is(err, models.ErrNotFound):
		default:
			return Registration{}, err
		}
	}

	if matched && match.Identity.IsGuest {
		return s.promote(ctx, match, profile)
	}

	if matched && (profile.DisplayName == "" || profile.DisplayName == match.Identity.DisplayName) {
		slog.Info("register: face already registered",
			"identity_id", match.Identity.ID,
			"score", match.Score)
		return Registration{Identity: match.Identity, Score: match.Score}, nil
	}

	hash, err := s.hashSecret(profile.Password)
	if err != nil {
		return Registration{}, err
	}

	gender := profile.Gender
	if gender == "" {
		gender = models.GenderOther
	}
	avatar := profile.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	created, err := s.insert(ctx, models.Identity{
		DisplayName:    profile.DisplayName,
		RealName:       profile.RealName,
		PhoneNumber:    profile.PhoneNumber,
		Gender:         gender,
		Avatar:         avatar,
		CredentialHash: hash,
		FeatureVector:  vec,
		IsGuest:        false,
	})
	if err != nil {
		return Registration{}, err
	}

	slog.Info("register: identity created", "identity_id", created.ID)
	s.publish(ctx, models.EventRegistered, created, 0)

	return Registration{Identity: created, Created: true}, nil
}

func (s *Service) promote(ctx context.Context, match biometric.Match, profile models.Profile) (Registration, error) {
	guest := match.Identity
	upd := models.IdentityUpdate{Promote: true}

	if profile.DisplayName != "" {
		upd.DisplayName = &profile.DisplayName
	}
	if profile.RealName != "" {
		upd.RealName = &profile.RealName
	}
	if profile.PhoneNumber != "" {
		upd.PhoneNumber = &profile.PhoneNumber
	}
	if profile.Gender != "" {
		upd.Gender = &profile.Gender
	} else if guest.Gender == "" {
		g := models.GenderOther
		upd.Gender = &g
	}
	if profile.Avatar != "" {
		upd.Avatar = &profile.Avatar
	} else if guest.Avatar == "" {
		a := models.DefaultAvatar
		upd.Avatar = &a
	}
	if profile.Password != "" {
		hash, err := s.hashSecret(profile.Password)
		if err != nil {
			return Registration{}, err
		}
		upd.CredentialHash = &hash
	}

	promoted, err := s.update(ctx, guest.ID, upd)
	if err != nil {
		return Registration{}, err
	}

	slog.Info("register: guest promoted",
		"identity_id", promoted.ID,
		"score", match.Score)
	s.publish(ctx, models.EventPromoted, promoted, match.Score)

	return Registration{Identity: promoted, Promoted: true, Score: match.Score}, nil
}

// LoginByFace authenticates whoever vec matches, guest or registered. With
// allowGuest a miss enrolls a new guest; without it a miss is models.ErrNoMatch.
func (s *Service) LoginByFace(ctx context.Context, vec []float32, allowGuest bool) (FaceLogin, error) {
	if err := s.engine.ValidateInput(vec); err != nil {
		return FaceLogin{}, err
	}

	population, err := s.population(ctx)
	if err != nil {
		return FaceLogin{}, err
	}

	if match, ok := s.match("login", vec, population); ok {
		s.publish(ctx, models.EventFaceLogin, match.Identity, match.Score)
		return FaceLogin{Identity: match.Identity, Score: match.Score}, nil
	}

	if !allowGuest {
		return FaceLogin{}, models.ErrNoMatch
	}
	return s.createGuest(ctx, vec)
}

// createGuest re-checks the population under the guest-creation lock so a
// concurrent login that just enrolled the same face is found instead of duplicated.
func (s *Service) createGuest(ctx context.Context, vec []float32) (FaceLogin, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	unlock, err := s.locker.LockGuestCreation(lockCtx)
	cancel()
	if err != nil {
		return FaceLogin{}, StoreError("lock guest creation", err)
	}
	defer unlock()

	population, err := s.population(ctx)
	if err != nil {
		return FaceLogin{}, err
	}
	if match, ok := s.match("guest_recheck", vec, population); ok {
		s.publish(ctx, models.EventFaceLogin, match.Identity, match.Score)
		return FaceLogin{Identity: match.Identity, Score: match.Score}, nil
	}

	for attempt := 0; attempt < guestNameAttempts; attempt++ {
		name := NewGuestName(s.now())
		taken, err := s.nameInUse(ctx, name)
		if err != nil {
			return FaceLogin{}, err
		}
		if taken {
			continue
		}

		guest, err := s.insert(ctx, models.Identity{
			DisplayName:   name,
			Gender:        models.GenderOther,
			FeatureVector: vec,
			IsGuest:       true,
		})
		if errors.Is(err, models.ErrNameTaken) {
			continue
		}
		if err != nil {
			return FaceLogin{}, err
		}

		slog.Info("login: guest created", "identity_id", guest.ID, "display_name", guest.DisplayName)
		s.publish(ctx, models.EventGuestCreated, guest, 0)

		return FaceLogin{Identity: guest, GuestCreated: true}, nil
	}
	return FaceLogin{}, fmt.Errorf("create guest: %w: no free name after %d attempts", models.ErrNameTaken, guestNameAttempts)
}

// nameInUse checks both guests and registered identities so a placeholder
// never shadows an existing name.
func (s *Service) nameInUse(ctx context.Context, name string) (bool, error) {
	for _, guest := range []bool{false, true} {
		_, err := s.getByDisplayName(ctx, name, guest)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}

// LoginByCredential verifies a display name and secret. Guests never have a
// credential and are always rejected.
func (s *Service) LoginByCredential(ctx context.Context, displayName, secret string) (models.Identity, error) {
	name := NormalizeDisplayName(displayName)
	if name == "" || secret == "" {
		return models.Identity{}, fmt.Errorf("%w: display name and password are required", models.ErrInvalidInput)
	}

	id, err := s.getByDisplayName(ctx, name, false)
	if errors.Is(err, models.ErrNotFound) {
		return models.Identity{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.Identity{}, err
	}

	if id.IsGuest || id.CredentialHash == "" || !s.hasher.Verify(secret, id.CredentialHash) {
		return models.Identity{}, models.ErrInvalidCredentials
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Identity{}, StoreError("get identity", err)
	}
	return found, nil
}

// UpdateProfile applies a partial profile change for an authenticated identity.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req models.ProfileUpdate) (models.Identity, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Identity{}, err
	}

	var upd models.IdentityUpdate

	if req.DisplayName != nil {
		name := NormalizeDisplayName(*req.DisplayName)
		if err := validateName("display name", name); err != nil {
			return models.Identity{}, err
		}
		if name != current.DisplayName {
			owner, err := s.getByDisplayName(ctx, name, false)
			if err == nil && owner.ID != id {
				return models.Identity{}, fmt.Errorf("%w: %s", models.ErrNameTaken, name)
			}
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return models.Identity{}, err
			}
		}
		upd.DisplayName = &name
	}
	if req.RealName != nil {
		name := NormalizeDisplayName(*req.RealName)
		if name != "" {
			if err := validateName("real name", name); err != nil {
				return models.Identity{}, err
			}
		}
		upd.RealName = &name
	}
	if req.Gender != nil {
		if err := validateGender(*req.Gender); err != nil {
			return models.Identity{}, err
		}
		upd.Gender = req.Gender
	}
	if req.Avatar != nil {
		upd.Avatar = req.Avatar
	}
	if req.FeatureVector != nil {
		if len(req.FeatureVector) == 0 {
			if current.IsGuest {
				return models.Identity{}, fmt.Errorf("%w: a guest must keep its feature vector", models.ErrInvalidInput)
			}
		} else if err := s.engine.ValidateInput(req.FeatureVector); err != nil {
			return models.Identity{}, err
		}
		upd.FeatureVector = req.FeatureVector
	}

	if upd.Empty() {
		return current, nil
	}
	return s.update(ctx, id, upd)
}

// ChangePassword replaces the credential of a registered identity.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, oldSecret, newSecret string) error {
	if oldSecret == "" || newSecret == "" {
		return fmt.Errorf("%w: old and new password are required", models.ErrInvalidInput)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.IsGuest || current.CredentialHash == "" || !s.hasher.Verify(oldSecret, current.CredentialHash) {
		return models.ErrInvalidCredentials
	}
	if oldSecret == newSecret {
		return fmt.Errorf("%w: new password must differ from the old one", models.ErrInvalidInput)
	}

	hash, err := s.hashSecret(newSecret)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, id, models.IdentityUpdate{CredentialHash: &hash})
	return err
}

func (s *Service) population(ctx context.Context) ([]models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	population, err := s.store.ListWithFeatures(ctx)
	if err != nil {
		return nil, StoreError("list population", err)
	}
	observability.PopulationSize.Set(float64(len(population)))
	return population, nil
}

func (s *Service) match(op string, vec []float32, population []models.Identity) (biometric.Match, bool) {
	start := time.Now()
	m, ok := s.engine.FindBestMatch(vec, population)
	observability.MatchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return m, ok
}

func (s *Service) getByDisplayName(ctx context.Context, name string, isGuest bool) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	id, err := s.store.GetByDisplayName(ctx, name, isGuest)
	if err != nil {
		return models.Identity{}, StoreError("get identity by name", err)
	}
	return id, nil
}

func (s *Service) insert(ctx context.Context, id models.Identity) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	created, err := s.store.Insert(ctx, id)
	if err != nil {
		return models.Identity{}, StoreError("insert identity", err)
	}
	return created, nil
}

func (s *Service) update(ctx context.Context, id uuid.UUID, upd models.IdentityUpdate) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return models.Identity{}, StoreError("update identity", err)
	}
	return updated, nil
}

func (s *Service) hashSecret(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return hash, nil
}

func (s *Service) publish(ctx context.Context, t models.EventType, id models.Identity, score float64) {
	observability.LifecycleTransitions.WithLabelValues(string(t)).Inc()
	if err := s.publisher.PublishIdentityEvent(ctx, models.NewIdentityEvent(t, id, score)); err != nil {
		slog.Warn("publish identity event", "type", t, "identity_id", id.ID, "error", err)
	}
}

// StoreError keeps domain errors intact and classifies everything else as
// a timeout or an unavailable dependency.
func StoreError(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrNameTaken),
		errors.Is(err, models.ErrInvalidInput):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, models.ErrDependencyTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrDependencyUnavailable, err)
	}
}
