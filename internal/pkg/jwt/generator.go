// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"verdant-service/internal/domain/auth"
)

type Generator struct {
	priv       *rsa.PrivateKey
	issuer     string
	audience   string
	kid        string // key id for rotation
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, accessTTL, refreshTTL time.Duration) *Generator {
	return &Generator{
		priv:       priv,
		issuer:     issuer,
		audience:   audience,
		kid:        kid,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test use only.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// AccessTTL returns the configured access token lifetime.
func (g *Generator) AccessTTL() time.Duration { return g.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (g *Generator) RefreshTTL() time.Duration { return g.refreshTTL }

// generate signs a token of the given type for the principal. Returns the
// signed token, its JTI, and its expiry.
func (g *Generator) generate(principal auth.Principal, tokenType string, ttl time.Duration) (string, string, time.Time, error) {
	if g.priv == nil {
		return "", "", time.Time{}, fmt.Errorf("jwt generator has nil private key")
	}

	now := g.now()
	jti := ulid.Make().String()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Principal: principal,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   fmt.Sprintf("%d", principal.UserID),
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, jti, expiresAt, nil
}

// GenerateAccessToken mints a short-lived access token for the principal.
func (g *Generator) GenerateAccessToken(principal auth.Principal) (string, string, time.Time, error) {
	return g.generate(principal, TokenTypeAccess, g.accessTTL)
}

// GenerateRefreshToken mints a long-lived refresh token for the principal.
func (g *Generator) GenerateRefreshToken(principal auth.Principal) (string, string, time.Time, error) {
	return g.generate(principal, TokenTypeRefresh, g.refreshTTL)
}
