package service

import (
	"sync"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"golang.org/x/time/rate"
)

// LoginLimiter tracks failed-login points per user id. Each key gets a
// token bucket sized to the configured budget over the window; the budget
// is re-read per attempt, so a changed setting takes effect on the next
// consume. Allow() on rate.Limiter is atomic per key, which keeps
// concurrent attempts against the same user from slipping past the budget.
type LoginLimiter struct {
	window time.Duration

	mu          sync.Mutex
	entries     map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	budget  int
}

func NewLoginLimiter(window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &LoginLimiter{
		window:      window,
		entries:     make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}
}

// Consume spends one point of the key's budget. Returns
// domain.ErrRateLimited once the budget is exhausted within the window.
func (l *LoginLimiter) Consume(key string, budget int) error {
	if budget <= 0 {
		return domain.ErrRateLimited
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || e.budget != budget {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(budget)/l.window.Seconds()), budget),
			budget:  budget,
		}
		l.entries[key] = e
	}
	l.maybeCleanupLocked()
	l.mu.Unlock()

	if !e.limiter.Allow() {
		return domain.ErrRateLimited
	}
	return nil
}

// Reset zeroes the counter for key immediately: after a successful login,
// and after a lockout so a reactivated account starts clean.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// maybeCleanupLocked drops idle entries so ephemeral keys don't accumulate.
// An entry whose bucket has fully refilled hasn't failed a login in at
// least a window.
func (l *LoginLimiter) maybeCleanupLocked() {
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()

	for key, e := range l.entries {
		if e.limiter.Tokens() >= float64(e.budget) {
			delete(l.entries, key)
		}
	}
}
