// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

type Config struct {
	PrivPath   string
	PubPath    string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	KID        string

	// PrevKeys maps retired kid values to their public key PEM paths so
	// tokens signed before a rotation keep verifying during the grace
	// period.
	PrevKeys map[string]string
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// LoadAndBuild loads the signing key pair and constructs the token manager.
// Key misconfiguration is fatal here, at startup, never lazily per request.
func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	gen := NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.AccessTTL, cfg.RefreshTTL)
	ver := NewVerifier(pub, cfg.Issuer, cfg.Audience)

	for kid, path := range cfg.PrevKeys {
		prev, err := LoadRSAPublicKeyFromPEM(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load previous key %s from %s: %w", kid, path, err)
		}
		ver.AddPreviousKey(kid, prev)
	}

	return &Manager{
		Generator: gen,
		Verifier:  ver,
	}, nil
}
