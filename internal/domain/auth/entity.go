// internal/domain/auth/entity.go
package auth

import (
	"time"

	"verdant-service/internal/pkg/rbac"
)

// Principal identifies "who" for the lifetime of a session. Immutable once
// embedded in a token; the role here is the single source of truth for every
// permission check and redaction decision.
type Principal struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     rbac.Role `json:"role"`
	TenantID string    `json:"tenant_id"`
}

// User is the stored account row backing a Principal.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         rbac.Role  `json:"role"`
	TenantID     string     `json:"tenant_id"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal derives the immutable session identity from the account row.
func (u *User) Principal() Principal {
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		TenantID: u.TenantID,
	}
}
