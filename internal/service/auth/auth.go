// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"verdant-service/internal/domain/auth"
	"verdant-service/internal/obs"
	xerrors "verdant-service/internal/pkg/errors"
	"verdant-service/internal/pkg/jwt"
	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/security"
	"verdant-service/internal/pkg/session"
)

// BcryptCost is pinned above the library default; mirrored by the seeding
// tooling so stored hashes stay comparable.
const BcryptCost = 12

// UserStore is the persistence the auth flow needs from user storage.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*auth.User, error)
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// RevocationNotifier pushes session revocation events to connected clients.
type RevocationNotifier interface {
	ForceLogout(userID int64, tokenID string, reason string)
}

type AuthService struct {
	users          UserStore
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	attempts       security.AttemptTracker
	notifier       RevocationNotifier
	logger         *zap.Logger
	now            func() time.Time
}

func NewAuthService(
	users UserStore,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	attempts security.AttemptTracker,
	notifier RevocationNotifier,
	logger *zap.Logger,
) *AuthService {
	s := &AuthService{
		users:          users,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		attempts:       attempts,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
	sessionManager.OnEvict(s.onSessionEvicted)
	return s
}

// WithClock overrides the time source. Test use only.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) onSessionEvicted(evicted *session.Session) {
	obs.ActiveSessions.Dec()
	if s.notifier != nil {
		s.notifier.ForceLogout(evicted.Principal.UserID, evicted.TokenID, "session limit reached")
	}
}

// ========== Login ==========

// Login authenticates an identifier/password pair and opens a session. The
// lockout check runs before the password so a locked account rejects even
// correct credentials, and unknown identifiers fail exactly like wrong
// passwords.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	if err := security.CheckLocked(s.attempts, req.Identifier); err != nil {
		obs.LoginsTotal.WithLabelValues("locked").Inc()
		s.logger.Warn("login rejected, account locked",
			zap.String("identifier", req.Identifier),
			zap.String("ip", req.IPAddress),
		)
		return nil, err
	}

	user, err := s.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			s.recordFailure(req)
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailure(req)
		return nil, xerrors.ErrInvalidCredentials
	}

	s.attempts.RecordSuccess(req.Identifier)
	obs.LoginsTotal.WithLabelValues("success").Inc()

	principal := user.Principal()
	resp, err := s.issueTokens(ctx, principal, session.Meta{IPAddress: req.IPAddress, UserAgent: req.UserAgent})
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		// Login already succeeded; the stamp is best effort.
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("ip", req.IPAddress),
	)
	return resp, nil
}

func (s *AuthService) recordFailure(req *auth.LoginRequest) {
	obs.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	failures, locked := s.attempts.RecordFailure(req.Identifier)
	if locked {
		obs.LockoutsTotal.Inc()
	}
	s.logger.Warn("failed login attempt",
		zap.String("identifier", req.Identifier),
		zap.String("ip", req.IPAddress),
		zap.Int("failures", failures),
		zap.Bool("locked", locked),
	)
}

func (s *AuthService) issueTokens(ctx context.Context, principal auth.Principal, meta session.Meta) (*auth.LoginResponse, error) {
	accessToken, accessJTI, accessExpiry, err := s.jwtManager.Generator.GenerateAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, refreshExpiry, err := s.jwtManager.Generator.GenerateRefreshToken(principal)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if _, err := s.sessionManager.Create(ctx, principal, accessJTI, jwt.Fingerprint(accessToken), accessExpiry, meta); err != nil {
		return nil, err
	}
	obs.ActiveSessions.Inc()

	if err := s.sessionManager.SaveRefresh(ctx, &session.RefreshRecord{
		TokenID:   refreshJTI,
		UserID:    principal.UserID,
		IssuedAt:  s.now(),
		ExpiresAt: refreshExpiry,
	}); err != nil {
		return nil, fmt.Errorf("failed to save refresh record: %w", err)
	}

	return &auth.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.jwtManager.Generator.AccessTTL().Seconds()),
		Role:         principal.Role,
		Permissions:  rbac.PermissionsFor(principal.Role),
	}, nil
}

// ========== Token Refresh ==========

// Refresh mints a new access token from a still-honored refresh token. The
// refresh token itself is not rotated; it lives until expiry or revocation.
func (s *AuthService) Refresh(ctx context.Context, req *auth.RefreshRequest) (*auth.RefreshResponse, error) {
	claims, err := s.jwtManager.Verifier.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.sessionManager.CheckRefresh(ctx, claims.ID); err != nil {
		return nil, err
	}

	// Re-read the user so a role change or deactivation lands in the new
	// token instead of persisting for the refresh token's whole lifetime.
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return nil, xerrors.ErrTokenRevoked
	}

	principal := user.Principal()
	accessToken, accessJTI, accessExpiry, err := s.jwtManager.Generator.GenerateAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	meta := session.Meta{IPAddress: req.IPAddress, UserAgent: req.UserAgent}
	if _, err := s.sessionManager.Create(ctx, principal, accessJTI, jwt.Fingerprint(accessToken), accessExpiry, meta); err != nil {
		return nil, err
	}
	obs.ActiveSessions.Inc()

	return &auth.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtManager.Generator.AccessTTL().Seconds()),
	}, nil
}

// ========== Validation ==========

// ValidateToken is the middleware entry point: signature and claims first,
// then the server-side session, so a revoked token fails even though its
// signature still verifies.
func (s *AuthService) ValidateToken(ctx context.Context, token string, meta session.Meta) (*jwt.Claims, *session.Session, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessionManager.Validate(ctx, jwt.Fingerprint(token), claims.ID, meta)
	if err != nil {
		return nil, nil, err
	}
	return claims, sess, nil
}

// ========== Logout ==========

// Logout terminates the session behind the presented token. Idempotent, and
// deliberately lenient: an expired token still gets its session cleaned up.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	removed, err := s.sessionManager.Terminate(ctx, jwt.Fingerprint(token))
	if err != nil {
		return err
	}
	// Only a real removal moves the gauge; a repeated logout must not
	// drift it below the live count.
	if removed {
		obs.ActiveSessions.Dec()
	}
	return nil
}

// LogoutAll terminates every session and refresh token for the user and
// notifies connected clients.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) (int, error) {
	count, err := s.sessionManager.TerminateAll(ctx, userID)
	if err != nil {
		return count, err
	}
	obs.ActiveSessions.Sub(float64(count))

	if s.notifier != nil {
		s.notifier.ForceLogout(userID, "", "logged out everywhere")
	}
	s.logger.Info("terminated all sessions",
		zap.Int64("user_id", userID),
		zap.Int("count", count),
	)
	return count, nil
}

// RevokeSession terminates one of the user's sessions by token-id, for the
// "log out that device" flow.
func (s *AuthService) RevokeSession(ctx context.Context, userID int64, tokenID string) error {
	removed, err := s.sessionManager.TerminateByTokenID(ctx, userID, tokenID)
	if err != nil {
		return err
	}
	if removed {
		obs.ActiveSessions.Dec()
	}

	if s.notifier != nil {
		s.notifier.ForceLogout(userID, tokenID, "session revoked")
	}
	return nil
}

// ========== Introspection ==========

// CheckPermission answers whether the role holds a permission. Unknown roles
// and unknown permissions are both false, never an error.
func (s *AuthService) CheckPermission(role rbac.Role, permission rbac.Permission) bool {
	return rbac.Has(role, permission)
}

// ListSessions returns the user's live sessions, flagging the caller's own.
func (s *AuthService) ListSessions(ctx context.Context, userID int64, currentTokenID string) ([]*auth.SessionInfo, error) {
	sessions, err := s.sessionManager.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]*auth.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, &auth.SessionInfo{
			TokenID:      sess.TokenID,
			IPAddress:    sess.IPAddress,
			UserAgent:    sess.UserAgent,
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
			LastActivity: sess.LastActivityAt.Format(time.RFC3339),
			ExpiresAt:    sess.ExpiresAt.Format(time.RFC3339),
			Current:      sess.TokenID == currentTokenID,
		})
	}
	return infos, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID int64) (*auth.User, error) {
	return s.users.FindByID(ctx, userID)
}
