package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// IPRateLimit caps requests per client IP inside a rolling window. Each
// protected endpoint gets its own id so limits do not interfere. Redis
// being down fails open: auth still works, the limiter does not.
func IPRateLimit(cache *redis.Client, log zerolog.Logger, id string, window time.Duration, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("freq:%s:%s", id, c.ClientIP())

		count, err := cache.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("rate limit check failed")
			c.Next()
			return
		}
		if count == 1 {
			if err := cache.Expire(c.Request.Context(), key, window).Err(); err != nil {
				log.Warn().Err(err).Str("id", id).Msg("rate limit expire failed")
			}
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests"})
			return
		}

		c.Next()
	}
}
