package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.Response{Code: http.StatusOK, Message: message, Data: data})
}

func respondStatus(c *gin.Context, status int, message string) {
	c.JSON(status, dto.Response{Code: status, Message: message})
}

// respondError maps domain errors to the failure envelope. Dependency and
// unexpected errors are logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
	}
	respondStatus(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNameTaken):
		return http.StatusBadRequest, "username already exists"
	case errors.Is(err, models.ErrNoMatch):
		return http.StatusBadRequest, "face not recognized"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid username or password"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, models.ErrDependencyTimeout):
		return http.StatusInternalServerError, "service timed out, please retry"
	default:
		return http.StatusInternalServerError, "internal error, please retry later"
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	respondStatus(c, http.StatusBadRequest, "invalid request: "+err.Error())
}

func userInfo(id models.Identity) dto.UserInfo {
	return dto.UserInfo{
		UserID:      id.ID,
		Username:    id.DisplayName,
		Realname:    id.RealName,
		PhoneNumber: id.PhoneNumber,
		Gender:      string(id.Gender),
		Avatar:      id.Avatar,
		IsGuest:     id.IsGuest,
	}
}
