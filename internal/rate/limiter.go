package rate

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Check when the key has exhausted its
// attempt budget inside the current window.
var ErrRateLimited = errors.New("rate limited")

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts    int
	Window         time.Duration
	MaxTrackedKeys int
}

// Limiter enforces a per-key sliding-window attempt budget in process
// memory. An attempt at time t only counts against attempts in
// (t - Window, t]; pruning happens lazily on each Check for that key.
//
// The attempt log is bounded by MaxTrackedKeys. When a new key would push
// the log past the cap, keys whose attempts have all aged out are dropped
// first, then the key with the oldest most-recent attempt is evicted.
type Limiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	config   Config
	now      func() time.Time
}

// New creates a [Limiter] with the given config. Zero or negative config
// values fall back to 5 attempts per 15 minutes across 10000 tracked keys.
func New(cfg Config) *Limiter {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a [Limiter] with an injected clock. Tests use this
// to drive window boundaries deterministically.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.MaxTrackedKeys <= 0 {
		cfg.MaxTrackedKeys = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		attempts: make(map[string][]time.Time),
		config:   cfg,
		now:      now,
	}
}

// Check prunes attempts for key older than the window, then either rejects
// with [ErrRateLimited] (the blocked attempt is NOT recorded and does not
// count toward future windows) or records the attempt and returns nil.
// The prune-gate-record sequence is atomic with respect to concurrent calls.
func (l *Limiter) Check(key string) error {
	now := l.now()
	cutoff := now.Add(-l.config.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := pruneBefore(l.attempts[key], cutoff)

	if len(recent) >= l.config.MaxAttempts {
		l.attempts[key] = recent
		return ErrRateLimited
	}

	if _, tracked := l.attempts[key]; !tracked {
		l.evictLocked(cutoff)
	}
	l.attempts[key] = append(recent, now)

	return nil
}

// Clear removes all recorded attempts for key. Called on successful login
// to reset throttling for that identity.
func (l *Limiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// Attempts returns the number of attempts for key still inside the window.
// Missing keys return zero.
func (l *Limiter) Attempts(key string) int {
	now := l.now()
	cutoff := now.Add(-l.config.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	return len(pruneBefore(l.attempts[key], cutoff))
}

// TrackedKeys returns the number of keys currently held in the log.
func (l *Limiter) TrackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// evictLocked makes room for one more key. Caller holds l.mu.
func (l *Limiter) evictLocked(cutoff time.Time) {
	if len(l.attempts) < l.config.MaxTrackedKeys {
		return
	}

	// First pass: drop keys whose every attempt has aged out.
	for k, ts := range l.attempts {
		if len(pruneBefore(ts, cutoff)) == 0 {
			delete(l.attempts, k)
		}
	}
	if len(l.attempts) < l.config.MaxTrackedKeys {
		return
	}

	// Still full: evict the key with the oldest most-recent attempt.
	var victim string
	var victimLast time.Time
	for k, ts := range l.attempts {
		last := ts[len(ts)-1]
		if victim == "" || last.Before(victimLast) {
			victim = k
			victimLast = last
		}
	}
	if victim != "" {
		delete(l.attempts, victim)
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	if len(ts) == 0 {
		return nil
	}
	// Attempts are appended in order; find the first one still inside the window.
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[i:]...)
}
