// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"verdant-service/internal/domain/auth"
	xerrors "verdant-service/internal/pkg/errors"
)

// Eviction policies for the per-user session cap.
const (
	EvictOldest = "oldest" // FIFO by creation time (default)
	EvictLRU    = "lru"    // least recently active
)

type Config struct {
	TTL time.Duration
	// MaxPerUser caps concurrent sessions per principal; exceeding it evicts
	// per EvictionPolicy.
	MaxPerUser     int
	EvictionPolicy string
	// SlideThreshold triggers a sliding-expiry extension when remaining TTL
	// falls below it.
	SlideThreshold time.Duration
	// BindIP invalidates a session when the client IP changes mid-session.
	// Off by default: a hard block breaks mobile and roaming clients.
	BindIP bool
}

// EvictHook is notified when the session cap forces out an older session,
// so revocation can be pushed to connected clients.
type EvictHook func(evicted *Session)

// Manager layers session-lifecycle policy (cap, eviction, sliding expiry,
// IP binding) over a Store.
type Manager struct {
	store   Store
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	onEvict EvictHook
}

func NewManager(store Store, cfg Config, logger *zap.Logger) *Manager {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 5
	}
	if cfg.EvictionPolicy == "" {
		cfg.EvictionPolicy = EvictOldest
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Test use only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// OnEvict registers the cap-eviction hook.
func (m *Manager) OnEvict(hook EvictHook) {
	m.onEvict = hook
}

// Create registers a session for a freshly issued access token, evicting the
// oldest session first when the per-user cap would be exceeded.
func (m *Manager) Create(ctx context.Context, principal auth.Principal, tokenID, fingerprint string, expiresAt time.Time, meta Meta) (*Session, error) {
	now := m.now()

	existing, err := m.store.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	live := existing[:0]
	for _, s := range existing {
		if s.Active && now.Before(s.ExpiresAt) {
			live = append(live, s)
		}
	}

	if len(live) >= m.cfg.MaxPerUser {
		m.sortForEviction(live)
		for _, victim := range live[:len(live)-m.cfg.MaxPerUser+1] {
			if err := m.store.Delete(ctx, victim.Fingerprint); err != nil {
				return nil, fmt.Errorf("failed to evict session: %w", err)
			}
			m.logger.Info("session cap reached, evicted session",
				zap.Int64("user_id", principal.UserID),
				zap.String("token_id", victim.TokenID),
				zap.String("policy", m.cfg.EvictionPolicy),
			)
			if m.onEvict != nil {
				m.onEvict(victim)
			}
		}
	}

	s := &Session{
		Fingerprint:    fingerprint,
		TokenID:        tokenID,
		Principal:      principal,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
		Active:         true,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

// sortForEviction orders candidates so the first entries are evicted.
func (m *Manager) sortForEviction(sessions []*Session) {
	switch m.cfg.EvictionPolicy {
	case EvictLRU:
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].LastActivityAt.Before(sessions[j].LastActivityAt)
		})
	default:
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		})
	}
}

// Validate confirms that a cryptographically valid token still has a live
// session: present, active, unexpired, and carrying the same token-id. It
// touches last-activity and applies sliding expiry. The touch goes through
// the store's atomic Update so concurrent validations of the same session
// never regress last-activity or drop an expiry extension.
func (m *Manager) Validate(ctx context.Context, fingerprint, tokenID string, meta Meta) (*Session, error) {
	now := m.now()
	var (
		uid                int64
		oldIP              string
		ipChanged, expired bool
		invalidated        bool
	)

	s, err := m.store.Update(ctx, fingerprint, func(s *Session) error {
		uid = s.Principal.UserID
		if !s.Active {
			return xerrors.ErrSessionNotFound
		}
		if !now.Before(s.ExpiresAt) {
			expired = true
			return xerrors.ErrSessionNotFound
		}
		if s.TokenID != tokenID {
			return xerrors.ErrSessionNotFound
		}

		if meta.IPAddress != "" && s.IPAddress != "" && meta.IPAddress != s.IPAddress {
			ipChanged = true
			oldIP = s.IPAddress
			if m.cfg.BindIP {
				invalidated = true
				return xerrors.ErrSessionNotFound
			}
			s.IPAddress = meta.IPAddress
		}

		// Last-activity is monotonically non-decreasing; the store runs
		// this under the key's lock, so a racing older clock cannot win.
		if now.After(s.LastActivityAt) {
			s.LastActivityAt = now
		}

		// Sliding expiry: extending to now+TTL is idempotent, so a
		// redundant concurrent extension is harmless.
		if m.cfg.SlideThreshold > 0 && s.ExpiresAt.Sub(now) < m.cfg.SlideThreshold {
			s.ExpiresAt = now.Add(m.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		if expired || invalidated {
			// Lazy expiry; the periodic sweep is a memory bound, not a
			// correctness requirement.
			_ = m.store.Delete(ctx, fingerprint)
		}
		if invalidated {
			m.logger.Warn("session invalidated on IP change",
				zap.Int64("user_id", uid),
				zap.String("old_ip", oldIP),
				zap.String("new_ip", meta.IPAddress),
			)
		}
		return nil, err
	}

	if ipChanged {
		m.logger.Warn("client IP changed mid-session",
			zap.Int64("user_id", uid),
			zap.String("old_ip", oldIP),
			zap.String("new_ip", meta.IPAddress),
		)
	}
	return s, nil
}

// Terminate removes a session, reporting whether a record was actually
// removed. Idempotent: terminating an absent or already terminated session
// succeeds with false.
func (m *Manager) Terminate(ctx context.Context, fingerprint string) (bool, error) {
	if _, err := m.store.Get(ctx, fingerprint); err != nil {
		if xerrors.Is(err, xerrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := m.store.Delete(ctx, fingerprint); err != nil {
		return false, err
	}
	return true, nil
}

// TerminateAll removes every session for the principal and revokes its
// refresh tokens, returning the session count.
func (m *Manager) TerminateAll(ctx context.Context, userID int64) (int, error) {
	count, err := m.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return count, err
	}
	if err := m.store.RevokeAllRefreshForUser(ctx, userID); err != nil {
		return count, err
	}
	return count, nil
}

// TerminateByTokenID removes the user's session carrying the given token-id,
// reporting whether one was found and removed.
func (m *Manager) TerminateByTokenID(ctx context.Context, userID int64, tokenID string) (bool, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, s := range sessions {
		if s.TokenID == tokenID {
			if err := m.store.Delete(ctx, s.Fingerprint); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// ListActive returns the user's live sessions ordered by creation time.
func (m *Manager) ListActive(ctx context.Context, userID int64) ([]*Session, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	live := sessions[:0]
	for _, s := range sessions {
		if s.Active && now.Before(s.ExpiresAt) {
			live = append(live, s)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	return live, nil
}

// SaveRefresh records a freshly issued refresh token.
func (m *Manager) SaveRefresh(ctx context.Context, rec *RefreshRecord) error {
	return m.store.SaveRefresh(ctx, rec)
}

// CheckRefresh confirms a refresh token is still honored server-side.
func (m *Manager) CheckRefresh(ctx context.Context, tokenID string) error {
	rec, err := m.store.GetRefresh(ctx, tokenID)
	if err != nil {
		return err
	}
	if rec.Revoked {
		return xerrors.ErrTokenRevoked
	}
	if !m.now().Before(rec.ExpiresAt) {
		return xerrors.ErrTokenExpired
	}
	return nil
}

// RevokeRefresh marks a refresh token unusable regardless of its signature.
func (m *Manager) RevokeRefresh(ctx context.Context, tokenID string) error {
	return m.store.RevokeRefresh(ctx, tokenID)
}

// SweepExpired removes expired records; run from a periodic timer off the
// request path.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx, m.now())
}
