// internal/pkg/security/attempts_test.go
package security

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	xerrors "verdant-service/internal/pkg/errors"
)

func newTestTracker(cfg TrackerConfig) (*MemoryTracker, *time.Time) {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	now := base
	t := NewMemoryTracker(cfg, zap.NewNop()).WithClock(func() time.Time { return now })
	return t, &now
}

func TestTrackerLocksAtThreshold(t *testing.T) {
	tracker, _ := newTestTracker(TrackerConfig{Threshold: 5, LockDuration: 30 * time.Minute})

	for i := 1; i <= 4; i++ {
		failures, locked := tracker.RecordFailure("mike@verdant.test")
		if failures != i {
			t.Fatalf("failure %d: got count %d", i, failures)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 5", i)
		}
		if isLocked, _ := tracker.IsLocked("mike@verdant.test"); isLocked {
			t.Fatalf("IsLocked true after %d failures", i)
		}
	}

	failures, locked := tracker.RecordFailure("mike@verdant.test")
	if failures != 5 || !locked {
		t.Fatalf("expected lock at failure 5, got count=%d locked=%v", failures, locked)
	}

	isLocked, retryAfter := tracker.IsLocked("mike@verdant.test")
	if !isLocked {
		t.Fatal("expected identifier locked")
	}
	if retryAfter != 30*time.Minute {
		t.Fatalf("expected 30m retry-after, got %v", retryAfter)
	}
}

func TestTrackerLockIsPerIdentifier(t *testing.T) {
	tracker, _ := newTestTracker(TrackerConfig{Threshold: 2, LockDuration: time.Minute})

	tracker.RecordFailure("mike@verdant.test")
	tracker.RecordFailure("mike@verdant.test")

	if locked, _ := tracker.IsLocked("sara@verdant.test"); locked {
		t.Fatal("unrelated identifier should not be locked")
	}
}

func TestTrackerSuccessResets(t *testing.T) {
	tracker, _ := newTestTracker(TrackerConfig{Threshold: 5, LockDuration: 30 * time.Minute})

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("mike@verdant.test")
	}
	tracker.RecordSuccess("mike@verdant.test")

	// The counter restarts from clean, so four more failures do not lock.
	for i := 1; i <= 4; i++ {
		if failures, locked := tracker.RecordFailure("mike@verdant.test"); failures != i || locked {
			t.Fatalf("after reset, failure %d: count=%d locked=%v", i, failures, locked)
		}
	}
}

func TestTrackerLockExpiresLazily(t *testing.T) {
	tracker, now := newTestTracker(TrackerConfig{Threshold: 2, LockDuration: 30 * time.Minute})

	tracker.RecordFailure("mike@verdant.test")
	tracker.RecordFailure("mike@verdant.test")
	if locked, _ := tracker.IsLocked("mike@verdant.test"); !locked {
		t.Fatal("expected lock")
	}

	*now = now.Add(30*time.Minute + time.Second)
	if locked, _ := tracker.IsLocked("mike@verdant.test"); locked {
		t.Fatal("expected lock to have elapsed")
	}

	// Elapsed lock resets the counter entirely.
	if failures, locked := tracker.RecordFailure("mike@verdant.test"); failures != 1 || locked {
		t.Fatalf("expected clean restart, got count=%d locked=%v", failures, locked)
	}
}

func TestTrackerRetryAfterCountsDown(t *testing.T) {
	tracker, now := newTestTracker(TrackerConfig{Threshold: 1, LockDuration: 10 * time.Minute})

	tracker.RecordFailure("mike@verdant.test")
	*now = now.Add(4 * time.Minute)

	_, retryAfter := tracker.IsLocked("mike@verdant.test")
	if retryAfter != 6*time.Minute {
		t.Fatalf("expected 6m remaining, got %v", retryAfter)
	}
}

func TestTrackerPrune(t *testing.T) {
	tracker, now := newTestTracker(TrackerConfig{Threshold: 5, Retention: 24 * time.Hour})

	tracker.RecordFailure("stale@verdant.test")
	*now = now.Add(25 * time.Hour)
	tracker.RecordFailure("fresh@verdant.test")

	if pruned := tracker.Prune(); pruned != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", pruned)
	}
	if failures, _ := tracker.RecordFailure("fresh@verdant.test"); failures != 2 {
		t.Fatalf("fresh entry should survive prune, got count %d", failures)
	}
}

func TestCheckLocked(t *testing.T) {
	tracker, _ := newTestTracker(TrackerConfig{Threshold: 1, LockDuration: 30 * time.Minute})

	if err := CheckLocked(tracker, "mike@verdant.test"); err != nil {
		t.Fatalf("clean identifier should pass: %v", err)
	}

	tracker.RecordFailure("mike@verdant.test")
	err := CheckLocked(tracker, "mike@verdant.test")
	if !errors.Is(err, xerrors.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	var lockErr *xerrors.LockoutError
	if !errors.As(err, &lockErr) || lockErr.RetryAfter != 30*time.Minute {
		t.Fatalf("expected LockoutError with 30m retry-after, got %v", err)
	}
}
