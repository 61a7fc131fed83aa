package dto

// UpdateProfileRequest is a partial update; absent fields are left untouched.
// An empty faceFeature array clears the stored vector.
type UpdateProfileRequest struct {
	Username    *string   `json:"username"`
	Realname    *string   `json:"realname"`
	Gender      *string   `json:"gender" binding:"omitempty,oneof=male female other"`
	Avatar      *string   `json:"avatar"`
	FaceFeature []float32 `json:"faceFeature"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
