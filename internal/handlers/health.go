package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Health(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error().Err(err).Msg("health check: postgres unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": "down"})
		return
	}
	if err := h.cache.Ping(ctx).Err(); err != nil {
		h.log.Error().Err(err).Msg("health check: redis unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "down"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
