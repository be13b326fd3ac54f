// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/domain/auth"
	"verdant-service/internal/middleware"
	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/response"
	authUsecase "verdant-service/internal/service/auth"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Login ==========

// Login handles the credential exchange (public endpoint)
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.AuthError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Refresh mints a new access token from a refresh token (public endpoint)
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	refreshResp, err := h.authService.Refresh(c.Request.Context(), &req)
	if err != nil {
		response.AuthError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "token refreshed", refreshResp)
}

// ========== Logout ==========

// Logout terminates the caller's session
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.Unauthorized(c, "missing authorization token")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "logged out", nil)
}

// LogoutAll terminates every session for the caller
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	count, err := h.authService.LogoutAll(c.Request.Context(), principal.UserID)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "logged out everywhere", gin.H{"terminated": count})
}

// ========== Introspection ==========

// Me returns the caller's profile
func (h *AuthHandler) Me(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	user, err := h.authService.Me(c.Request.Context(), principal.UserID)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "profile", gin.H{
		"user":        user,
		"permissions": rbac.PermissionsFor(user.Role),
	})
}

// CheckPermission answers the UI feature-toggle probe
func (h *AuthHandler) CheckPermission(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	permission := c.Param("permission")

	allowed := h.authService.CheckPermission(principal.Role, permission)
	response.Success(c, http.StatusOK, "permission check", auth.PermissionCheckResponse{Allowed: allowed})
}

// ListSessions returns the caller's live sessions
func (h *AuthHandler) ListSessions(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	jti := middleware.MustGetJTI(c)

	sessions, err := h.authService.ListSessions(c.Request.Context(), principal.UserID, jti)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "active sessions", sessions)
}

// RevokeSession terminates one of the caller's sessions by token id
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	tokenID := c.Param("token_id")

	if err := h.authService.RevokeSession(c.Request.Context(), principal.UserID, tokenID); err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "session revoked", nil)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
