package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

const (
	maxAvatarBytes = 5 << 20
	uploadsPrefix  = "/uploads/"
)

var allowedAvatarTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ObjectStore holds uploaded files.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, string, error)
}

type AvatarHandler struct {
	objects ObjectStore
}

func NewAvatarHandler(objects ObjectStore) *AvatarHandler {
	return &AvatarHandler{objects: objects}
}

// Upload stores an image sent as the multipart field "file" and returns its URL.
// The URL can then be set as the avatar through the profile update.
func (h *AvatarHandler) Upload(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondStatus(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "no file uploaded")
		return
	}
	if fh.Size > maxAvatarBytes {
		respondStatus(c, http.StatusBadRequest, "file too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "cannot read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAvatarBytes+1))
	if err != nil || len(data) > maxAvatarBytes {
		respondStatus(c, http.StatusBadRequest, "cannot read upload")
		return
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedAvatarTypes...) {
		respondStatus(c, http.StatusBadRequest, "unsupported file type "+mtype.String())
		return
	}

	key := path.Join("avatars", userID.String(), uuid.NewString()+mtype.Extension())
	if err := h.objects.PutObject(c.Request.Context(), key, data, mtype.String()); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "file uploaded", dto.UploadResponse{URL: uploadsPrefix + key})
}

// Download serves a previously uploaded file.
func (h *AvatarHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(path.Clean("/"+c.Param("key")), "/")
	if key == "" || key == "." {
		respondStatus(c, http.StatusNotFound, "file not found")
		return
	}

	data, contentType, err := h.objects.GetObject(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondStatus(c, http.StatusNotFound, "file not found")
			return
		}
		respondError(c, err)
		return
	}

	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}
