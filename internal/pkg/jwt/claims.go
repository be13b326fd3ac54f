// internal/pkg/jwt/claims.go
package jwt

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"

	"verdant-service/internal/domain/auth"
)

// Token type claim values. Anything else is rejected at verification.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed token payload: the principal, the token type, and the
// registered claim set (iss, aud, sub, iat, nbf, exp, jti).
type Claims struct {
	auth.Principal
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}

// Fingerprint derives the non-reversible session lookup key from a signed
// token. Server-side session state is keyed by this value so the raw token
// is never stored.
func Fingerprint(signedToken string) string {
	sum := sha256.Sum256([]byte(signedToken))
	return hex.EncodeToString(sum[:])
}
