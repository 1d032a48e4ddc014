package portalauth

import (
	"errors"
	"time"

	"github.com/sbiswal/portalauth/session"
)

// Config collects every tunable of the engine. Zero values are replaced by
// [defaultConfig] values during [Builder.Build]; a Config is treated as
// immutable once the engine is built.
type Config struct {
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// SessionConfig controls the persisted session record.
type SessionConfig struct {
	// TTL is the session lifetime. Zero falls back to [session.DefaultTTL]
	// (24 hours).
	TTL time.Duration
}

// RateLimitConfig controls the sliding-window sign-in limiter.
type RateLimitConfig struct {
	// MaxAttempts per credential slot per Window. Default 5.
	MaxAttempts int
	// Window is the sliding lookback. Default 15 minutes.
	Window time.Duration
	// MaxTrackedKeys bounds the limiter's memory; the oldest slots are
	// evicted past this. Default 10000.
	MaxTrackedKeys int
}

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: events beyond the buffer are
	// counted and discarded instead of stalling sign-in.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL: session.DefaultTTL,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:    5,
			Window:         15 * time.Minute,
			MaxTrackedKeys: 10000,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with. Zero values
// are legal (they take defaults); negatives are not.
func (c Config) Validate() error {
	if c.Session.TTL < 0 {
		return errors.New("Session.TTL must not be negative")
	}
	if c.RateLimit.MaxAttempts < 0 {
		return errors.New("RateLimit.MaxAttempts must not be negative")
	}
	if c.RateLimit.Window < 0 {
		return errors.New("RateLimit.Window must not be negative")
	}
	if c.RateLimit.MaxTrackedKeys < 0 {
		return errors.New("RateLimit.MaxTrackedKeys must not be negative")
	}
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := defaultConfig()
	if c.Session.TTL == 0 {
		c.Session.TTL = def.Session.TTL
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = def.RateLimit.MaxAttempts
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = def.RateLimit.Window
	}
	if c.RateLimit.MaxTrackedKeys == 0 {
		c.RateLimit.MaxTrackedKeys = def.RateLimit.MaxTrackedKeys
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
	return c
}
