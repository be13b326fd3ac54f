// internal/pkg/session/memory_store_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	xerrors "verdant-service/internal/pkg/errors"
)

func memoryTestSession(fp, jti string, userID int64, base time.Time) *Session {
	return &Session{
		Fingerprint:    fp,
		TokenID:        jti,
		Principal:      testManagerPrincipal(userID),
		IPAddress:      "203.0.113.10",
		UserAgent:      "go-test",
		CreatedAt:      base,
		LastActivityAt: base,
		ExpiresAt:      base.Add(24 * time.Hour),
		Active:         true,
	}
}

func TestMemoryStoreUpdateSerializesWriters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, memoryTestSession("fp-1", "jti-1", 1, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Each writer advances last-activity by one second. Under the shard
	// lock no increment can be lost to a concurrent read-modify-write.
	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update(ctx, "fp-1", func(s *Session) error {
				s.LastActivityAt = s.LastActivityAt.Add(time.Second)
				return nil
			}); err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := base.Add(writers * time.Second); !got.LastActivityAt.Equal(want) {
		t.Fatalf("lost updates: got %v want %v", got.LastActivityAt, want)
	}
}

func TestMemoryStoreUpdateFailedFnPersistsNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, memoryTestSession("fp-1", "jti-1", 1, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "fp-1", func(s *Session) error {
		s.TokenID = "jti-tampered"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}

	got, err := store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TokenID != "jti-1" {
		t.Fatalf("failed update must not persist, got token-id %q", got.TokenID)
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Update(context.Background(), "missing", func(*Session) error { return nil }); !errors.Is(err, xerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
