// internal/middleware/redact_middleware.go
package middleware

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/redact"
)

// bodyWriter buffers the response so the redaction pass can rewrite it
// before anything reaches the wire.
type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

// RedactMiddleware strips restricted financial fields from JSON responses
// for roles without finance clearance. MUST run after Auth so the role is
// known; wraps the writer on the way in, filters on the way out.
func RedactMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if ok && rbac.CanSeeRestrictedFields(role) {
			c.Next()
			return
		}

		bw := &bodyWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = bw
		c.Next()
		c.Writer = bw.ResponseWriter

		body := bw.buf.Bytes()
		if !strings.Contains(bw.Header().Get("Content-Type"), "application/json") {
			_, _ = bw.ResponseWriter.Write(body)
			return
		}

		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			// Not valid JSON after all; pass through untouched.
			_, _ = bw.ResponseWriter.Write(body)
			return
		}

		scrubbed, err := json.Marshal(redact.Scrub(role, payload))
		if err != nil {
			logger.Error("failed to re-encode redacted response", zap.Error(err))
			_, _ = bw.ResponseWriter.Write(body)
			return
		}
		_, _ = bw.ResponseWriter.Write(scrubbed)
	}
}
