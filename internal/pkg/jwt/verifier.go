// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	xerrors "verdant-service/internal/pkg/errors"
)

// clockSkewLeeway tolerates small clock differences for nbf/iat checks.
// Expiry never gets leeway; Verify enforces exp strictly.
const clockSkewLeeway = 30 * time.Second

type Verifier struct {
	pub      *rsa.PublicKey
	issuer   string
	audience string

	// prevKeys holds previous-generation public keys by kid so outstanding
	// tokens stay verifiable during a key rotation grace period.
	prevKeys map[string]*rsa.PublicKey
	now      func() time.Time
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub:      pub,
		issuer:   issuer,
		audience: audience,
		prevKeys: make(map[string]*rsa.PublicKey),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test use only.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// AddPreviousKey registers a retired signing key for grace-period
// verification. Tokens carrying the matching kid verify against it.
func (v *Verifier) AddPreviousKey(kid string, pub *rsa.PublicKey) {
	if kid != "" && pub != nil {
		v.prevKeys[kid] = pub
	}
}

// keyFor selects the verification key by the token's kid header, falling
// back to the current key.
func (v *Verifier) keyFor(token *jwt.Token) *rsa.PublicKey {
	if kid, ok := token.Header["kid"].(string); ok {
		if pub, found := v.prevKeys[kid]; found {
			return pub
		}
	}
	return v.pub
}

// Verify validates signature, time claims, issuer, audience, and the token
// type claim, returning the parsed claims. Failures map onto the distinct
// token error variants so callers can assert on cause.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("jwt verifier has nil public key")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.keyFor(token), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithLeeway(clockSkewLeeway), jwt.WithTimeFunc(func() time.Time { return v.now() }))

	if err != nil {
		return nil, translateParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, xerrors.ErrTokenMalformed
	}

	// The parser leeway covers nbf/iat clock skew only. Expiry is enforced
	// strictly here: a token is invalid at its exp instant, skew or not.
	if claims.ExpiresAt == nil || !v.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token is past its expiry", xerrors.ErrTokenExpired)
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", xerrors.ErrTokenSignatureInvalid)
	}
	if !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", xerrors.ErrTokenSignatureInvalid)
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", xerrors.ErrTokenTypeMismatch, claims.TokenType)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role claim", xerrors.ErrTokenMalformed)
	}

	return claims, nil
}

// VerifyAccessToken verifies a token and requires the access type.
func (v *Verifier) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: expected access token", xerrors.ErrTokenTypeMismatch)
	}
	return claims, nil
}

// VerifyRefreshToken verifies a token and requires the refresh type.
func (v *Verifier) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: expected refresh token", xerrors.ErrTokenTypeMismatch)
	}
	return claims, nil
}

// translateParseError maps golang-jwt parse failures onto the error
// taxonomy. Order matters: expiry is checked before the generic
// signature/malformed buckets because the library wraps several causes
// together.
func translateParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", xerrors.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", xerrors.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", xerrors.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", xerrors.ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", xerrors.ErrTokenMalformed, err)
	}
}
