package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sbiswal/portalauth/internal/metrics"
	"github.com/sbiswal/portalauth/internal/securestore"
)

// StorageKey is the single logical slot a session record occupies. The
// secure store maps it to the physical key "secure_session".
const StorageKey = "session"

// DefaultTTL is the session lifetime applied when none is configured.
const DefaultTTL = 24 * time.Hour

// Manager owns the session record lifecycle: creation with expiry,
// retrieval with lazy expiry enforcement, and invalidation. It is the only
// writer of the session storage key, and a mutex serializes every access
// to that key so read-merge-write sequences cannot lose a concurrent
// write.
type Manager struct {
	mu      sync.Mutex
	store   *securestore.Store
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewManager creates a [Manager] over the given secure store. Zero ttl
// falls back to [DefaultTTL]; nil now falls back to time.Now.
func NewManager(store *securestore.Store, ttl time.Duration, now func() time.Time, log *zap.Logger, m *metrics.Metrics) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, ttl: ttl, now: now, log: log, metrics: m}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create stamps and persists a new record for identity, fully replacing
// any existing record. The returned record carries IssuedAt = now and
// ExpiresAt = now + TTL.
func (m *Manager) Create(ctx context.Context, identity Identity) (Record, error) {
	rec := Record{SessionID: uuid.NewString()}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec.Identity = identity
	rec.IssuedAt = now
	rec.ExpiresAt = now.Add(m.ttl)

	if err := m.store.SetItem(ctx, StorageKey, rec.toBlob()); err != nil {
		return Record{}, err
	}

	m.metrics.Inc(metrics.MetricSessionCreated)
	return rec, nil
}

// Update applies merge to the live record's identity and persists the
// result, keeping the session ID but restamping IssuedAt and ExpiresAt
// (writing the record extends the session by a full TTL). The whole
// read-merge-write runs under the storage key's mutex, so concurrent
// updates cannot overwrite each other's committed fields. Returns
// ok=false when no live record exists; a merge error aborts without
// writing.
func (m *Manager) Update(ctx context.Context, merge func(Identity) (Identity, error)) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.getLocked(ctx)
	if !ok {
		return Record{}, false, nil
	}

	identity, err := merge(cur.Identity)
	if err != nil {
		return Record{}, true, err
	}

	now := m.now()
	rec := Record{
		SessionID: cur.SessionID,
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.SetItem(ctx, StorageKey, rec.toBlob()); err != nil {
		return Record{}, true, err
	}

	m.metrics.Inc(metrics.MetricIdentityUpdated)
	return rec, true, nil
}

// Get returns the live record, if any. An expired record is deleted before
// reporting absence (lazy expiry — there is no background timer), and
// storage or decode failures read as "no session": the caller is demoted
// to anonymous, never shown an error banner.
func (m *Manager) Get(ctx context.Context) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(ctx)
}

func (m *Manager) getLocked(ctx context.Context) (Record, bool) {
	var b blob
	ok, err := m.store.GetItem(ctx, StorageKey, &b)
	if err != nil {
		m.log.Warn("session read failed, treating as signed out", zap.Error(err))
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	rec := b.toRecord()
	if m.now().After(rec.ExpiresAt) {
		m.metrics.Inc(metrics.MetricSessionExpired)
		if err := m.clearLocked(ctx); err != nil {
			m.log.Warn("expired session cleanup failed", zap.Error(err))
		}
		return Record{}, false
	}
	return rec, true
}

// Clear removes the session record. Idempotent; safe with no session
// present.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

func (m *Manager) clearLocked(ctx context.Context) error {
	if err := m.store.RemoveItem(ctx, StorageKey); err != nil {
		return err
	}
	m.metrics.Inc(metrics.MetricSessionCleared)
	return nil
}

// Valid reports whether a live, unexpired record exists.
func (m *Manager) Valid(ctx context.Context) bool {
	_, ok := m.Get(ctx)
	return ok
}
