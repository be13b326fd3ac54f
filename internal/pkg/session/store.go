// internal/pkg/session/store.go
package session

import (
	"context"
	"time"
)

// Store is the persistence contract for session and refresh-token records.
// A single-process in-memory implementation and a Redis-backed one satisfy
// the same interface, so the manager is store-agnostic and a multi-instance
// deployment can swap backends without touching callers.
type Store interface {
	// Save inserts or replaces a session record.
	Save(ctx context.Context, s *Session) error
	// Get returns the record for a fingerprint, or xerrors.ErrSessionNotFound.
	Get(ctx context.Context, fingerprint string) (*Session, error)
	// Update applies fn to the stored record atomically with respect to
	// concurrent writers for the same key. When fn returns an error nothing
	// is persisted and the error propagates. Returns the updated record.
	Update(ctx context.Context, fingerprint string, fn func(s *Session) error) (*Session, error)
	// Delete removes a session record. Deleting an absent record is not an
	// error; termination is idempotent.
	Delete(ctx context.Context, fingerprint string) error
	// DeleteAllForUser removes every session for the user, returning the count.
	DeleteAllForUser(ctx context.Context, userID int64) (int, error)
	// ListByUser returns all stored sessions for a user, unordered.
	ListByUser(ctx context.Context, userID int64) ([]*Session, error)

	SaveRefresh(ctx context.Context, rec *RefreshRecord) error
	// GetRefresh returns the record for a refresh JTI, or xerrors.ErrTokenRevoked
	// when no record exists (an unknown refresh token is treated as revoked).
	GetRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error)
	RevokeRefresh(ctx context.Context, tokenID string) error
	RevokeAllRefreshForUser(ctx context.Context, userID int64) error

	// SweepExpired drops records whose expiry precedes now, returning the
	// number of sessions removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}
