// internal/middleware/logging_middleware.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/obs"
)

// LoggingMiddleware logs each request and feeds the HTTP metrics. The
// matched route template is used for the metric label so path cardinality
// stays bounded.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		obs.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		obs.RequestDuration.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Observe(duration.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.ClientIP()),
		}
		if status >= 500 {
			logger.Error("request failed", fields...)
		} else {
			logger.Info("request", fields...)
		}
	}
}
