// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"verdant-service/internal/obs"
	"verdant-service/internal/pkg/response"
	"verdant-service/internal/pkg/security"
)

// RateLimitMiddleware throttles per client. The key is the authenticated
// principal when present on a later pass, otherwise the client IP; it runs
// before auth in the chain so the IP form is what protects the login route.
func RateLimitMiddleware(limiter *security.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if p, ok := GetPrincipal(c); ok {
			clientID = "user:" + p.Username
		}

		if err := limiter.Allow(clientID); err != nil {
			obs.RateLimitRejections.Inc()
			response.AuthError(c, err)
			return
		}
		c.Next()
	}
}
