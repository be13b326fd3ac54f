// internal/pkg/security/attempts.go
package security

import (
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	xerrors "verdant-service/internal/pkg/errors"
)

const attemptShardCount = 16

// AttemptTracker guards the login path against credential stuffing. Failed
// attempts per identifier accumulate toward a temporary lockout; a successful
// login clears the counter.
type AttemptTracker interface {
	// IsLocked reports whether the identifier is currently locked out and,
	// if so, how long until the lock expires.
	IsLocked(identifier string) (bool, time.Duration)
	// RecordFailure counts a failed attempt and returns the failures so far
	// plus whether this one tripped the lockout.
	RecordFailure(identifier string) (int, bool)
	// RecordSuccess clears the identifier's failure count.
	RecordSuccess(identifier string)
	// Prune drops entries idle longer than the retention window.
	Prune() int
}

type attemptEntry struct {
	failures    int
	lockedUntil time.Time
	lastSeen    time.Time
}

type attemptShard struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry
}

type TrackerConfig struct {
	// Threshold is the failed-attempt count that trips a lockout.
	Threshold int
	// LockDuration is how long a tripped identifier stays locked.
	LockDuration time.Duration
	// Retention bounds how long idle entries survive before Prune drops them.
	Retention time.Duration
}

// MemoryTracker is the in-process AttemptTracker. Counts are per instance;
// deployments that need cluster-wide lockouts put the redis-backed session
// store in front of a single auth instance or shard logins by identifier.
type MemoryTracker struct {
	cfg    TrackerConfig
	shards [attemptShardCount]*attemptShard
	logger *zap.Logger
	now    func() time.Time
}

func NewMemoryTracker(cfg TrackerConfig, logger *zap.Logger) *MemoryTracker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 30 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	t := &MemoryTracker{cfg: cfg, logger: logger, now: time.Now}
	for i := range t.shards {
		t.shards[i] = &attemptShard{entries: make(map[string]*attemptEntry)}
	}
	return t
}

// WithClock overrides the time source. Test use only.
func (t *MemoryTracker) WithClock(now func() time.Time) *MemoryTracker {
	t.now = now
	return t
}

func (t *MemoryTracker) shard(identifier string) *attemptShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return t.shards[h.Sum32()%attemptShardCount]
}

func (t *MemoryTracker) IsLocked(identifier string) (bool, time.Duration) {
	shard := t.shard(identifier)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[identifier]
	if !ok {
		return false, 0
	}

	now := t.now()
	if entry.lockedUntil.IsZero() || !now.Before(entry.lockedUntil) {
		// An elapsed lock resets lazily on the next check.
		if !entry.lockedUntil.IsZero() {
			delete(shard.entries, identifier)
		}
		return false, 0
	}
	return true, entry.lockedUntil.Sub(now)
}

func (t *MemoryTracker) RecordFailure(identifier string) (int, bool) {
	shard := t.shard(identifier)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := t.now()
	entry, ok := shard.entries[identifier]
	if !ok {
		entry = &attemptEntry{}
		shard.entries[identifier] = entry
	}
	entry.failures++
	entry.lastSeen = now

	if entry.failures >= t.cfg.Threshold && entry.lockedUntil.IsZero() {
		entry.lockedUntil = now.Add(t.cfg.LockDuration)
		t.logger.Warn("account locked after repeated failed logins",
			zap.String("identifier", identifier),
			zap.Int("failures", entry.failures),
			zap.Duration("lock_duration", t.cfg.LockDuration),
		)
		return entry.failures, true
	}
	return entry.failures, false
}

func (t *MemoryTracker) RecordSuccess(identifier string) {
	shard := t.shard(identifier)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.entries, identifier)
}

func (t *MemoryTracker) Prune() int {
	cutoff := t.now().Add(-t.cfg.Retention)
	pruned := 0
	for _, shard := range t.shards {
		shard.mu.Lock()
		for id, entry := range shard.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(shard.entries, id)
				pruned++
			}
		}
		shard.mu.Unlock()
	}
	return pruned
}

// CheckLocked wraps IsLocked into the error the login path returns.
func CheckLocked(t AttemptTracker, identifier string) error {
	if locked, retryAfter := t.IsLocked(identifier); locked {
		return &xerrors.LockoutError{RetryAfter: retryAfter}
	}
	return nil
}
