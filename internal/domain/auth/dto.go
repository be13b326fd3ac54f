// internal/domain/auth/dto.go
package auth

import "verdant-service/internal/pkg/rbac"

// LoginRequest for user login
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int               `json:"expires_in"`
	Role         rbac.Role         `json:"role"`
	Permissions  []rbac.Permission `json:"permissions"`
}

// RefreshRequest for minting a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshResponse carries the replacement access token
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// PermissionCheckResponse answers the UI feature-toggle probe
type PermissionCheckResponse struct {
	Allowed bool `json:"allowed"`
}

// SessionInfo is the introspection view of a live session
type SessionInfo struct {
	TokenID      string `json:"token_id"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity_at"`
	ExpiresAt    string `json:"expires_at"`
	Current      bool   `json:"current"`
}
