package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/recognition"
	"github.com/your-org/faceid/pkg/dto"
)

type RecognitionHandler struct {
	svc *recognition.Service
}

func NewRecognitionHandler(svc *recognition.Service) *RecognitionHandler {
	return &RecognitionHandler{svc: svc}
}

func (h *RecognitionHandler) RecognizeFaces(c *gin.Context) {
	var req dto.RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	subjects := make(map[string]recognition.Subject, len(req.FaceFeatures))
	for key, raw := range req.FaceFeatures {
		var s dto.RecognizeSubject
		if err := json.Unmarshal(raw, &s); err != nil {
			// An empty vector is rejected per subject by the service.
			subjects[key] = recognition.Subject{}
			continue
		}
		subjects[key] = recognition.Subject{FeatureVector: s.Feature, WantImage: s.NeedImage}
	}

	results, err := h.svc.RecognizeBatch(c.Request.Context(), subjects)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make(map[string]dto.RecognizeResult, len(results))
	for key, r := range results {
		switch {
		case r.Err != nil:
			out[key] = dto.RecognizeResult{Error: "invalid feature vector"}
		case !r.Registered:
			out[key] = dto.RecognizeResult{}
		default:
			id := r.Identity.ID
			out[key] = dto.RecognizeResult{
				Registered: true,
				UserID:     &id,
				Account:    r.Identity.DisplayName,
				Username:   r.Identity.RealName,
				Gender:     string(r.Identity.Gender),
				Image:      r.Image,
			}
		}
	}
	respondOK(c, "recognition complete", out)
}
