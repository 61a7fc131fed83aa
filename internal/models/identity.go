package models

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the enumerated genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

const DefaultAvatar = "/uploads/default-avatar.png"

// Identity is one enrolled person, either an anonymous guest or a registered account.
// Empty strings mean the field is absent.
type Identity struct {
	ID             uuid.UUID `json:"id" db:"id"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	RealName       string    `json:"real_name" db:"real_name"`
	PhoneNumber    string    `json:"phone_number" db:"phone_number"`
	Gender         Gender    `json:"gender" db:"gender"`
	Avatar         string    `json:"avatar" db:"avatar"`
	CredentialHash string    `json:"-" db:"credential_hash"`
	FeatureVector  []float32 `json:"-" db:"feature_vector"`
	IsGuest        bool      `json:"is_guest" db:"is_guest"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Enrolled reports whether the identity carries a biometric feature vector.
func (i Identity) Enrolled() bool {
	return len(i.FeatureVector) > 0
}

// Profile holds the optional fields supplied on registration.
type Profile struct {
	DisplayName string
	RealName    string
	Password    string
	PhoneNumber string
	Gender      Gender
	Avatar      string
}

// ProfileUpdate is a partial update requested by an authenticated identity.
// Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName   *string
	RealName      *string
	Gender        *Gender
	Avatar        *string
	FeatureVector []float32
}

// IdentityUpdate is applied by the store as one single-row write.
// Promotion is one-directional: there is no way to set IsGuest back to true.
type IdentityUpdate struct {
	DisplayName    *string
	RealName       *string
	PhoneNumber    *string
	Gender         *Gender
	Avatar         *string
	CredentialHash *string
	FeatureVector  []float32
	Promote        bool
}

// Empty reports whether the update changes nothing.
func (u IdentityUpdate) Empty() bool {
	return u.DisplayName == nil && u.RealName == nil && u.PhoneNumber == nil &&
		u.Gender == nil && u.Avatar == nil && u.CredentialHash == nil &&
		u.FeatureVector == nil && !u.Promote
}

// Apply returns a copy of id with the update applied. Stores use it to keep
// their write semantics identical.
func (u IdentityUpdate) Apply(id Identity) Identity {
	if u.DisplayName != nil {
		id.DisplayName = *u.DisplayName
	}
	if u.RealName != nil {
		id.RealName = *u.RealName
	}
	if u.PhoneNumber != nil {
		id.PhoneNumber = *u.PhoneNumber
	}
	if u.Gender != nil {
		id.Gender = *u.Gender
	}
	if u.Avatar != nil {
		id.Avatar = *u.Avatar
	}
	if u.CredentialHash != nil {
		id.CredentialHash = *u.CredentialHash
	}
	if u.FeatureVector != nil {
		id.FeatureVector = append([]float32(nil), u.FeatureVector...)
	}
	if u.Promote {
		id.IsGuest = false
	}
	return id
}
