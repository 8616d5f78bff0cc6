package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taotie8304/lu-gang-connect-project/internal/storage"
)

// UploadAvatar accepts a multipart "file" field, stores it and records the
// new object path on the account.
func (h HandlerSet) UploadAvatar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	path, err := h.avatars.Put(c.Request.Context(), user.ID, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only jpeg, png and webp avatars are accepted"})
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("avatar upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar upload failed"})
		return
	}

	if err := h.users.UpdateAvatar(c.Request.Context(), user.ID, path); err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": path})
}
