package portalauth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sbiswal/portalauth/internal/metrics"
	"github.com/sbiswal/portalauth/internal/rate"
	"github.com/sbiswal/portalauth/internal/securestore"
	"github.com/sbiswal/portalauth/session"
	"github.com/sbiswal/portalauth/store"
)

// Builder assembles an [Engine]. A Builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config    Config
	backend   store.Backend
	directory Directory
	logger    *zap.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with [defaultConfig] values.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Zero fields take defaults
// at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend sets the storage backend holding the persisted session.
// Required.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

// WithDirectory sets the credential directory. Required.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithLogger sets the diagnostics logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithAuditSink sets the audit destination. Ignored unless Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine's time source. Tests use this to pin
// session expiry and limiter windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the engine, and adopts any
// session already persisted in the backend so a process restart lands the
// user back in their authenticated state.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.backend == nil {
		return nil, errors.New("storage backend required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	cfg := b.config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	m := metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled})
	secure := securestore.New(b.backend, log, m)

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		sessions:  session.NewManager(secure, cfg.Session.TTL, now, log, m),
		limiter: rate.NewWithClock(rate.Config{
			MaxAttempts:    cfg.RateLimit.MaxAttempts,
			Window:         cfg.RateLimit.Window,
			MaxTrackedKeys: cfg.RateLimit.MaxTrackedKeys,
		}, now),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, log),
		metrics: m,
		log:     log,
		clock:   now,
	}

	engine.adoptPersistedSession(context.Background())

	b.built = true

	return engine, nil
}
