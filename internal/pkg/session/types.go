// internal/pkg/session/types.go
package session

import (
	"time"

	"verdant-service/internal/domain/auth"
)

// Session is the server-side record backing an outstanding access token,
// keyed by the token's fingerprint. It exists iff a still-valid, non-revoked
// access token for the same principal and token-id is outstanding.
type Session struct {
	Fingerprint    string         `json:"fingerprint"`
	TokenID        string         `json:"token_id"`
	Principal      auth.Principal `json:"principal"`
	IPAddress      string         `json:"ip_address"`
	UserAgent      string         `json:"user_agent"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	Active         bool           `json:"active"`
}

// RefreshRecord tracks a refresh token server-side by its JTI so it can be
// revoked independently of signature validity.
type RefreshRecord struct {
	TokenID   string    `json:"token_id"`
	UserID    int64     `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Meta carries per-request client attributes into session creation and
// validation.
type Meta struct {
	IPAddress string
	UserAgent string
}
