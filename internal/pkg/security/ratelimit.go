// internal/pkg/security/ratelimit.go
package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	xerrors "verdant-service/internal/pkg/errors"
)

type RateLimitConfig struct {
	// Requests allowed per Window for each client.
	Requests int
	Window   time.Duration
	// IdleTimeout bounds memory: buckets untouched this long are swept.
	IdleTimeout time.Duration
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token-bucket limit per client identifier (IP for
// anonymous traffic, principal for authenticated). A bucket starts full with
// Requests tokens and refills at Requests per Window, so a quiet client gets
// a full burst and a steady client averages out to the configured rate.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*clientBucket
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	rl := &RateLimiter{
		cfg:     cfg,
		buckets: make(map[string]*clientBucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// WithClock overrides the time source. Test use only.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) bucket(clientID string) *clientBucket {
	b, ok := rl.buckets[clientID]
	if !ok {
		limit := rate.Limit(float64(rl.cfg.Requests) / rl.cfg.Window.Seconds())
		b = &clientBucket{limiter: rate.NewLimiter(limit, rl.cfg.Requests)}
		rl.buckets[clientID] = b
	}
	return b
}

// Allow consumes one token for the client. On rejection it returns a
// RateLimitError carrying the wait until a token frees up, for the
// Retry-After header.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.bucket(clientID)
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return nil
	}

	// Reserve to learn the wait, then cancel so the probe does not consume
	// a future token.
	r := b.limiter.ReserveN(now, 1)
	retryAfter := r.DelayFrom(now)
	r.CancelAt(now)
	return &xerrors.RateLimitError{RetryAfter: retryAfter}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.IdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cfg.IdleTimeout)
	swept := 0
	for id, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, id)
			swept++
		}
	}
	return swept
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}
