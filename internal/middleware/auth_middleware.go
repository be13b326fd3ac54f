// internal/middleware/auth_middleware.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	xerrors "verdant-service/internal/pkg/errors"
	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/response"
	"verdant-service/internal/pkg/session"
	"verdant-service/internal/service/auth"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextPrincipal = "principal"
	ContextJTI       = "jti"
	ContextRole      = "role"
)

type AuthMiddleware struct {
	authService *auth.AuthService
	logger      *zap.Logger
}

func NewAuthMiddleware(authService *auth.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, logger: logger}
}

// Auth validates the bearer token and its server-side session, then stores
// the principal in the request context. Failures short-circuit with 401; the
// response never distinguishes a revoked token from an expired one beyond
// the error text.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		meta := session.Meta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		claims, _, err := m.authService.ValidateToken(c.Request.Context(), token, meta)
		if err != nil {
			response.AuthError(c, err)
			return
		}

		c.Set(ContextPrincipal, claims.Principal)
		c.Set(ContextJTI, claims.ID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// Authorize resolves the matched route against the permission table and
// checks the caller's role. MUST run after Auth. A route missing from the
// table is denied outright; a wired route with no permission requires
// authentication only.
func (m *AuthMiddleware) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}

		perm, known := PermissionForRoute(c.Request.Method, c.FullPath())
		if !known {
			// Route not in the table: deny rather than silently allow.
			m.logger.Error("route missing from permission table",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
			)
			response.Forbidden(c, "access not configured for this route")
			return
		}
		if perm == "" {
			c.Next()
			return
		}

		if !rbac.Has(role, perm) {
			err := &xerrors.PermissionError{Permission: perm}
			response.AuthError(c, err)
			return
		}

		c.Next()
	}
}

// RequirePermission guards a route with an explicit permission, for wiring
// outside the route table. MUST run after Auth.
func (m *AuthMiddleware) RequirePermission(perm rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if !rbac.Has(role, perm) {
			response.AuthError(c, &xerrors.PermissionError{Permission: perm})
			return
		}
		c.Next()
	}
}

// extractToken reads the bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
