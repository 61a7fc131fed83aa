package dto

import "github.com/google/uuid"

// WSEvent is a WebSocket message for real-time identity lifecycle delivery.
type WSEvent struct {
	Type       string    `json:"type"` // guest_created, promoted, registered, face_login
	IdentityID uuid.UUID `json:"identityId"`
	Username   string    `json:"username"`
	IsGuest    bool      `json:"isGuest"`
	Score      float64   `json:"score,omitempty"`
	Timestamp  string    `json:"timestamp"`
}
