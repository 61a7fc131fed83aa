package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type AuthHandler struct {
	svc    *identity.Service
	tokens *auth.JWTIssuer
}

func NewAuthHandler(svc *identity.Service, tokens *auth.JWTIssuer) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	reg, err := h.svc.Register(c.Request.Context(), models.Profile{
		DisplayName: req.Username,
		RealName:    req.Realname,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Gender:      models.Gender(req.Gender),
		Avatar:      req.Avatar,
	}, req.FaceFeature)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "registered"
	switch {
	case reg.Promoted:
		message = "registered, guest account upgraded"
	case !reg.Created:
		message = "already registered"
	}
	h.respondWithToken(c, message, reg.Identity, reg.Score)
}

func (h *AuthHandler) LoginPassword(c *gin.Context) {
	var req dto.PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	id, err := h.svc.LoginByCredential(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondWithToken(c, "login successful", id, 0)
}

// LoginFaceClientSide serves trusted kiosk devices: an unknown face gets a guest account.
func (h *AuthHandler) LoginFaceClientSide(c *gin.Context) {
	h.loginFace(c, true)
}

// LoginFace only authenticates faces that are already enrolled.
func (h *AuthHandler) LoginFace(c *gin.Context) {
	h.loginFace(c, false)
}

func (h *AuthHandler) loginFace(c *gin.Context, allowGuest bool) {
	var req dto.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.LoginByFace(c.Request.Context(), req.FaceFeature, allowGuest)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "login successful"
	if res.GuestCreated {
		message = "guest account created"
	}
	h.respondWithToken(c, message, res.Identity, res.Score)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, message string, id models.Identity, score float64) {
	token, err := h.tokens.Issue(id.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, message, dto.AuthResponse{
		Token:    token,
		UserInfo: userInfo(id),
		Score:    score,
	})
}
