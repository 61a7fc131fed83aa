package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type UserHandler struct {
	svc *identity.Service
}

func NewUserHandler(svc *identity.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondStatus(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	id, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "ok", userInfo(id))
}

func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondStatus(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	upd := models.ProfileUpdate{
		DisplayName:   req.Username,
		RealName:      req.Realname,
		Avatar:        req.Avatar,
		FeatureVector: req.FaceFeature,
	}
	if req.Gender != nil {
		g := models.Gender(*req.Gender)
		upd.Gender = &g
	}

	id, err := h.svc.UpdateProfile(c.Request.Context(), userID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "profile updated", userInfo(id))
}

func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondStatus(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "password changed", nil)
}
