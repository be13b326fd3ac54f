// internal/pkg/session/redis_store_test.go
package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	xerrors "verdant-service/internal/pkg/errors"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func redisTestSession(fp, jti string, userID int64, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		Fingerprint:    fp,
		TokenID:        jti,
		Principal:      testManagerPrincipal(userID),
		IPAddress:      "203.0.113.10",
		UserAgent:      "go-test",
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
		Active:         true,
	}
}

func TestRedisStoreSaveGet(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	want := redisTestSession("fp-1", "jti-1", 1, time.Now().Add(time.Hour))
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TokenID != want.TokenID || got.Principal != want.Principal || !got.Active {
		t.Fatalf("session mismatch: got %+v want %+v", got, want)
	}
}

func TestRedisStoreGetMissing(t *testing.T) {
	store := newTestRedisStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, xerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStoreSaveRejectsExpired(t *testing.T) {
	store := newTestRedisStore(t)
	s := redisTestSession("fp-1", "jti-1", 1, time.Now().Add(-time.Minute))
	if err := store.Save(context.Background(), s); err == nil {
		t.Fatal("expected error saving an already expired session")
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, redisTestSession("fp-1", "jti-1", 1, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "fp-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "fp-1"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, err := store.Get(ctx, "fp-1"); !errors.Is(err, xerrors.ErrSessionNotFound) {
		t.Fatalf("expected deleted session gone, got %v", err)
	}
}

func TestRedisStoreUpdate(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, redisTestSession("fp-1", "jti-1", 1, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	later := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	updated, err := store.Update(ctx, "fp-1", func(s *Session) error {
		s.LastActivityAt = later
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.LastActivityAt.Equal(later) {
		t.Fatalf("expected last activity %v, got %v", later, updated.LastActivityAt)
	}

	got, err := store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.LastActivityAt.Equal(later) {
		t.Fatalf("update not persisted: got %v", got.LastActivityAt)
	}

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "fp-1", func(s *Session) error {
		s.TokenID = "jti-tampered"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}
	got, err = store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TokenID != "jti-1" {
		t.Fatalf("failed update must not persist, got token-id %q", got.TokenID)
	}

	if _, err := store.Update(ctx, "missing", func(*Session) error { return nil }); !errors.Is(err, xerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStoreListAndDeleteAllForUser(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		s := redisTestSession(fmt.Sprintf("fp-%d", i), fmt.Sprintf("jti-%d", i), 5, time.Now().Add(time.Hour))
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if err := store.Save(ctx, redisTestSession("fp-other", "jti-other", 6, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sessions, err := store.ListByUser(ctx, 5)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions for user 5, got %d", len(sessions))
	}

	count, err := store.DeleteAllForUser(ctx, 5)
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 deleted, got %d", count)
	}

	// The other user's session is untouched.
	if _, err := store.Get(ctx, "fp-other"); err != nil {
		t.Fatalf("unrelated session should survive: %v", err)
	}
}

func TestRedisStoreSessionTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, redisTestSession("fp-1", "jti-1", 1, time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "fp-1"); !errors.Is(err, xerrors.ErrSessionNotFound) {
		t.Fatalf("expected session expired by TTL, got %v", err)
	}
}

func TestRedisStoreRefreshLifecycle(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	rec := &RefreshRecord{
		TokenID:   "rjti-1",
		UserID:    1,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.SaveRefresh(ctx, rec); err != nil {
		t.Fatalf("SaveRefresh: %v", err)
	}

	got, err := store.GetRefresh(ctx, "rjti-1")
	if err != nil {
		t.Fatalf("GetRefresh: %v", err)
	}
	if got.UserID != 1 || got.Revoked {
		t.Fatalf("unexpected refresh record: %+v", got)
	}

	if _, err := store.GetRefresh(ctx, "rjti-unknown"); !errors.Is(err, xerrors.ErrTokenRevoked) {
		t.Fatalf("expected unknown refresh treated as revoked, got %v", err)
	}

	if err := store.RevokeRefresh(ctx, "rjti-1"); err != nil {
		t.Fatalf("RevokeRefresh: %v", err)
	}
	got, err = store.GetRefresh(ctx, "rjti-1")
	if err != nil {
		t.Fatalf("GetRefresh after revoke: %v", err)
	}
	if !got.Revoked {
		t.Fatal("expected refresh marked revoked")
	}
}

func TestRedisStoreRevokeAllRefreshForUser(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		rec := &RefreshRecord{
			TokenID:   fmt.Sprintf("rjti-%d", i),
			UserID:    9,
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := store.SaveRefresh(ctx, rec); err != nil {
			t.Fatalf("SaveRefresh: %v", err)
		}
	}

	if err := store.RevokeAllRefreshForUser(ctx, 9); err != nil {
		t.Fatalf("RevokeAllRefreshForUser: %v", err)
	}
	for i := 1; i <= 2; i++ {
		got, err := store.GetRefresh(ctx, fmt.Sprintf("rjti-%d", i))
		if err != nil {
			t.Fatalf("GetRefresh: %v", err)
		}
		if !got.Revoked {
			t.Fatalf("expected rjti-%d revoked", i)
		}
	}
}
