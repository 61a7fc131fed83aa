package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventGuestCreated EventType = "guest_created"
	EventPromoted     EventType = "promoted"
	EventRegistered   EventType = "registered"
	EventFaceLogin    EventType = "face_login"
)

// IdentityEvent is published to NATS after every successful lifecycle transition.
type IdentityEvent struct {
	Type        EventType `json:"type"`
	IdentityID  uuid.UUID `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
	Score       float64   `json:"score,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewIdentityEvent builds an event for id stamped with the current time.
func NewIdentityEvent(t EventType, id Identity, score float64) IdentityEvent {
	return IdentityEvent{
		Type:        t,
		IdentityID:  id.ID,
		DisplayName: id.DisplayName,
		IsGuest:     id.IsGuest,
		Score:       score,
		Timestamp:   time.Now().UTC(),
	}
}
