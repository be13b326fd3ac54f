// internal/handlers/auth/auth_handler_test.go
package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"verdant-service/internal/domain/auth"
	"verdant-service/internal/middleware"
	xerrors "verdant-service/internal/pkg/errors"
	"verdant-service/internal/pkg/jwt"
	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/security"
	"verdant-service/internal/pkg/session"
	authUsecase "verdant-service/internal/service/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type singleUserStore struct {
	user *auth.User
}

func (s *singleUserStore) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	if identifier == s.user.Username || identifier == s.user.Email {
		return s.user, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *singleUserStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *singleUserStore) UpdateLastLogin(context.Context, int64, time.Time) error { return nil }

// newTestRouter wires login, logout and a protected route the way the
// production router does: logout stays outside the auth gate so it is
// idempotent even with a dead token.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	manager := &jwt.Manager{
		Generator: jwt.NewGenerator(key, "verdant-service", "verdant-api", "test-key", 15*time.Minute, 720*time.Hour),
		Verifier:  jwt.NewVerifier(&key.PublicKey, "verdant-service", "verdant-api"),
	}

	sessions := session.NewManager(session.NewMemoryStore(), session.Config{TTL: time.Hour, MaxPerUser: 5}, zap.NewNop())
	tracker := security.NewMemoryTracker(security.TrackerConfig{}, zap.NewNop())

	// MinCost keeps the seeding fast; production hashes use BcryptCost.
	hash, err := bcrypt.GenerateFromPassword([]byte("topsoil-2024"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &singleUserStore{user: &auth.User{
		ID: 1, Username: "mike", Email: "mike@verdant.test",
		PasswordHash: string(hash), Role: rbac.RoleOwner, TenantID: "verdant", Active: true,
	}}

	svc := authUsecase.NewAuthService(users, manager, sessions, tracker, nil, zap.NewNop())
	handler := NewAuthHandler(svc, zap.NewNop())
	authMW := middleware.NewAuthMiddleware(svc, zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v1")
	authPublic := api.Group("/auth")
	authPublic.POST("/login", handler.Login)
	authPublic.POST("/logout", handler.Logout)

	protected := api.Group("", authMW.Auth(), authMW.Authorize())
	protected.GET("/auth/me", handler.Me)

	return r
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	body, err := json.Marshal(gin.H{"identifier": "mike", "password": "topsoil-2024"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}

func post(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogoutIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	first := post(r, "/api/v1/auth/logout", token)
	require.Equal(t, http.StatusOK, first.Code)

	// Repeating with the now-dead token must still return 200.
	second := post(r, "/api/v1/auth/logout", token)
	require.Equal(t, http.StatusOK, second.Code)
}

func TestLogoutKillsSession(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusOK, post(r, "/api/v1/auth/logout", token).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutTokenRejected(t *testing.T) {
	r := newTestRouter(t)
	w := post(r, "/api/v1/auth/logout", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
