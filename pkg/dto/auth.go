package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	FaceFeature []float32 `json:"faceFeature" binding:"required"`
	Username    string    `json:"username"`
	Realname    string    `json:"realname"`
	Password    string    `json:"password"`
	PhoneNumber string    `json:"phoneNumber"`
	Gender      string    `json:"gender" binding:"omitempty,oneof=male female other"`
	Avatar      string    `json:"avatar"`
}

type PasswordLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type FaceLoginRequest struct {
	FaceFeature []float32 `json:"faceFeature" binding:"required"`
}

type UserInfo struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	Realname    string    `json:"realname,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	IsGuest     bool      `json:"isGuest"`
}

type AuthResponse struct {
	Token    string   `json:"token"`
	UserInfo UserInfo `json:"userInfo"`
	// Score is the similarity of the matched face, absent for new identities.
	Score float64 `json:"score,omitempty"`
}
