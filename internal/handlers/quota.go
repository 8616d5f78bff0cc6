package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
)

type quotaResponse struct {
	Quota          int64 `json:"quota"`
	UsedQuota      int64 `json:"usedQuota"`
	RemainingQuota int64 `json:"remainingQuota"`
}

// Quota reads the caller's billing balance. An account missing on the
// billing side is not an error; it simply has no quota yet.
func (h HandlerSet) Quota(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	billingUser, err := h.billing.FindByUsername(c.Request.Context(), user.Username)
	if err != nil {
		if !errors.Is(err, oneapi.ErrUserNotFound) {
			h.log.Warn().Err(err).Str("username", user.Username).Msg("billing quota lookup failed")
		}
		c.JSON(http.StatusOK, quotaResponse{})
		return
	}

	remaining := billingUser.Quota - billingUser.UsedQuota
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, quotaResponse{
		Quota:          billingUser.Quota,
		UsedQuota:      billingUser.UsedQuota,
		RemainingQuota: remaining,
	})
}
