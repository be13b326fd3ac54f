// internal/middleware/middleware_test.go
package middleware

import (
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
	xerrors "verdant-service/internal/pkg/errors"
	"verdant-service/internal/pkg/jwt"
	"verdant-service/internal/pkg/rbac"
	"verdant-service/internal/pkg/response"
	"verdant-service/internal/pkg/security"
	"verdant-service/internal/pkg/session"
	authsvc "verdant-service/internal/service/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedUserStore struct {
	users map[string]*auth.User
}

func (s *fixedUserStore) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	if u, ok := s.users[identifier]; ok {
		return u, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *fixedUserStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fixedUserStore) UpdateLastLogin(context.Context, int64, time.Time) error { return nil }

type pipelineEnv struct {
	svc    *authsvc.AuthService
	authMW *AuthMiddleware
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	manager := &jwt.Manager{
		Generator: jwt.NewGenerator(key, "verdant-service", "verdant-api", "test-key", 15*time.Minute, 720*time.Hour),
		Verifier:  jwt.NewVerifier(&key.PublicKey, "verdant-service", "verdant-api"),
	}

	sessions := session.NewManager(session.NewMemoryStore(), session.Config{TTL: time.Hour, MaxPerUser: 5}, zap.NewNop())
	tracker := security.NewMemoryTracker(security.TrackerConfig{}, zap.NewNop())

	ownerHash, err := bcrypt.GenerateFromPassword([]byte("topsoil-2024"), bcrypt.MinCost)
	require.NoError(t, err)
	employeeHash, err := bcrypt.GenerateFromPassword([]byte("mulch-crew"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fixedUserStore{users: map[string]*auth.User{
		"mike": {ID: 1, Username: "mike", Email: "mike@verdant.test", PasswordHash: string(ownerHash), Role: rbac.RoleOwner, TenantID: "verdant", Active: true},
		"sara": {ID: 2, Username: "sara", Email: "sara@verdant.test", PasswordHash: string(employeeHash), Role: rbac.RoleEmployee, TenantID: "verdant", Active: true},
	}}

	svc := authsvc.NewAuthService(users, manager, sessions, tracker, nil, zap.NewNop())
	return &pipelineEnv{
		svc:    svc,
		authMW: NewAuthMiddleware(svc, zap.NewNop()),
	}
}

func (env *pipelineEnv) token(t *testing.T, identifier, password string) string {
	t.Helper()
	resp, err := env.svc.Login(context.Background(), &auth.LoginRequest{Identifier: identifier, Password: password})
	require.NoError(t, err)
	return resp.AccessToken
}

// newRouter wires the protected group the way the production router does.
func (env *pipelineEnv) newRouter() *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "ok", nil)
	})

	api := r.Group("/api/v1", env.authMW.Auth(), env.authMW.Authorize(), RedactMiddleware(zap.NewNop()))
	api.GET("/estimates", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "estimates", []gin.H{{
			"id":           1,
			"total":        1850.0,
			"gross_profit": 420.0,
			"line_items": []gin.H{{
				"unit_price": 2.5,
				"unit_cost":  1.1,
			}},
		}})
	})
	api.POST("/estimates/:id/approve", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "approved", nil)
	})
	api.GET("/auth/me", func(c *gin.Context) {
		p := MustGetPrincipal(c)
		response.Success(c, http.StatusOK, "me", p)
	})
	// Registered but deliberately absent from the permission table.
	api.GET("/orphan", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "orphan", nil)
	})
	return r
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicRouteSkipsAuth(t *testing.T) {
	env := newPipelineEnv(t)
	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMissingTokenRejected(t *testing.T) {
	env := newPipelineEnv(t)
	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGarbageTokenRejected(t *testing.T) {
	env := newPipelineEnv(t)
	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", "not.a.token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMalformedAuthorizationHeaderRejected(t *testing.T) {
	env := newPipelineEnv(t)
	r := env.newRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizedRequestPasses(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "mike", "topsoil-2024")

	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestForbiddenNamesPermission(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "sara", "mulch-crew")

	w := doRequest(env.newRouter(), http.MethodPost, "/api/v1/estimates/1/approve", token)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Error, rbac.PermEstimateApprove)
}

func TestUnmappedRouteDenied(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "mike", "topsoil-2024")

	// Even the owner is denied on a route missing from the table.
	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/orphan", token)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthenticatedOnlyRoute(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "sara", "mulch-crew")

	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/auth/me", token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRevokedSessionRejected(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "mike", "topsoil-2024")
	require.NoError(t, env.svc.Logout(context.Background(), token))

	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRedactionStripsFinancialsForEmployee(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "sara", "mulch-crew")

	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", token)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.NotContains(t, body, "gross_profit")
	require.NotContains(t, body, "unit_cost")
	require.Contains(t, body, "unit_price")
	require.Contains(t, body, "total")
}

func TestRedactionKeepsFinancialsForOwner(t *testing.T) {
	env := newPipelineEnv(t)
	token := env.token(t, "mike", "topsoil-2024")

	w := doRequest(env.newRouter(), http.MethodGet, "/api/v1/estimates", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "gross_profit")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := security.NewRateLimiter(security.RateLimitConfig{Requests: 3, Window: time.Minute})
	t.Cleanup(limiter.Close)

	r := gin.New()
	r.POST("/api/v1/auth/login", RateLimitMiddleware(limiter), func(c *gin.Context) {
		response.Success(c, http.StatusOK, "ok", nil)
	})

	for i := 0; i < 3; i++ {
		w := doRequest(r, http.MethodPost, "/api/v1/auth/login", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doRequest(r, http.MethodPost, "/api/v1/auth/login", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := doRequest(r, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
