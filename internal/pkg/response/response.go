// internal/pkg/response/response.go
package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	xerrors "verdant-service/internal/pkg/errors"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// CRITICAL: Abort FIRST before writing response
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// AuthError translates auth-layer errors into the right status code, setting
// Retry-After where the error carries a wait hint.
func AuthError(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, xerrors.ErrAccountLocked):
		var lockErr *xerrors.LockoutError
		if xerrors.As(err, &lockErr) {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(lockErr.RetryAfter)))
		}
		Error(c, http.StatusLocked, "account temporarily locked", err)
	case xerrors.Is(err, xerrors.ErrRateLimited):
		var rlErr *xerrors.RateLimitError
		if xerrors.As(err, &rlErr) {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rlErr.RetryAfter)))
		}
		Error(c, http.StatusTooManyRequests, "too many requests", err)
	case xerrors.Is(err, xerrors.ErrInsufficientPermission):
		Error(c, http.StatusForbidden, "insufficient permission", err)
	case xerrors.Is(err, xerrors.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, "invalid credentials", err)
	case xerrors.Is(err, xerrors.ErrTokenExpired),
		xerrors.Is(err, xerrors.ErrTokenMalformed),
		xerrors.Is(err, xerrors.ErrTokenSignatureInvalid),
		xerrors.Is(err, xerrors.ErrTokenTypeMismatch),
		xerrors.Is(err, xerrors.ErrTokenRevoked),
		xerrors.Is(err, xerrors.ErrSessionNotFound):
		Error(c, http.StatusUnauthorized, "authentication required", err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		NotFound(c, "resource not found")
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err)
	}
}

// retryAfterSeconds rounds up so a sub-second wait still tells the client to
// back off for at least one second.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
