package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RecognizeRequest keeps each subject raw so one malformed entry only fails
// its own key.
type RecognizeRequest struct {
	FaceFeatures map[string]json.RawMessage `json:"faceFeatures" binding:"required"`
}

type RecognizeSubject struct {
	FeatureType string    `json:"featureType,omitempty"`
	Feature     []float32 `json:"feature"`
	NeedImage   bool      `json:"needImage"`
}

type RecognizeResult struct {
	Registered bool       `json:"registered"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	Account    string     `json:"account,omitempty"`
	Username   string     `json:"username,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	Image      string     `json:"image,omitempty"`
	Error      string     `json:"error,omitempty"`
}
