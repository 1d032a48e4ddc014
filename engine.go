package portalauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sbiswal/portalauth/internal/metrics"
	"github.com/sbiswal/portalauth/internal/rate"
	"github.com/sbiswal/portalauth/session"
	"github.com/sbiswal/portalauth/validate"
)

// Engine is the authentication core. It owns the persisted session, the
// sign-in limiter, and the cached authentication state; all methods are
// safe for concurrent use after [Builder.Build].
type Engine struct {
	config    Config
	directory Directory
	sessions  *session.Manager
	limiter   *rate.Limiter
	audit     *auditDispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	clock     func() time.Time

	mu    sync.RWMutex
	state AuthState
}

// SignIn verifies credentials against the directory and, on success,
// replaces any existing session with a fresh one. Failures are
// deliberately coarse: unknown email, wrong password, and wrong role all
// return [ErrInvalidCredentials]. A slot that has exhausted its attempts
// returns [ErrRateLimited] without consulting the directory.
func (e *Engine) SignIn(ctx context.Context, creds Credentials) (AuthState, error) {
	if e == nil {
		return AuthState{}, ErrEngineNotReady
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	attempt := Identity{Email: email, Role: creds.Role}

	if err := validateCredentials(email, creds.Password, creds.Role); err != nil {
		e.metrics.Inc(metrics.MetricSignInRejectedInput)
		e.emitAudit(ctx, auditEventSignInRejectedInput, false, attempt, "", ErrRejectedInput, func() map[string]string {
			return map[string]string{"reason": err.Error()}
		})
		return AuthState{}, fmt.Errorf("%w: %v", ErrRejectedInput, err)
	}

	key := limiterKey(email, creds.Role)
	if err := e.limiter.Check(key); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(metrics.MetricSignInRateLimited)
			e.emitAudit(ctx, auditEventSignInRateLimited, false, attempt, "", ErrRateLimited, nil)
			e.log.Info("sign-in rate limited", zap.String("email", email), zap.String("role", string(creds.Role)))
			return AuthState{}, ErrRateLimited
		}
		return AuthState{}, err
	}

	identity, found, err := e.directory.Lookup(ctx, creds.Role, email, creds.Password)
	if err != nil {
		e.metrics.Inc(metrics.MetricStorageError)
		e.emitAudit(ctx, auditEventStorageError, false, attempt, "", ErrDirectoryUnavailable, nil)
		e.log.Warn("directory lookup failed", zap.Error(err))
		return AuthState{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !found {
		e.metrics.Inc(metrics.MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, attempt, "", ErrInvalidCredentials, nil)
		return AuthState{}, ErrInvalidCredentials
	}

	e.limiter.Clear(key)

	// Directory-supplied fields are scrubbed before they enter the
	// session record; the directory is pluggable and its data is not
	// trusted to be render-safe.
	identity.Name = validate.Sanitize(identity.Name)
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))

	rec, err := e.sessions.Create(ctx, identity)
	if err != nil {
		e.emitAudit(ctx, auditEventStorageError, false, identity, "", err, nil)
		e.log.Error("session persistence failed", zap.Error(err))
		return AuthState{}, err
	}

	state := stateFromRecord(rec)
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	e.metrics.Inc(metrics.MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, true, identity, rec.SessionID, nil, nil)

	return state, nil
}

// SignOut clears the persisted session and resets the cached state.
// Idempotent, and it always succeeds: a storage failure is logged and
// audited but the caller is signed out regardless. If the delete failed,
// the stale record can be re-adopted by a later Build until it expires.
func (e *Engine) SignOut(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	prev := e.state
	e.state = AuthState{}
	e.mu.Unlock()

	if err := e.sessions.Clear(ctx); err != nil {
		e.metrics.Inc(metrics.MetricStorageError)
		e.emitAudit(ctx, auditEventStorageError, false, prev.Identity, prev.SessionID, err, nil)
		e.log.Warn("session clear failed, record may outlive sign-out", zap.Error(err))
	}

	e.metrics.Inc(metrics.MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, true, prev.Identity, prev.SessionID, nil, nil)

	return nil
}

// UpdateIdentity applies a partial profile update to the authenticated
// identity and rewrites the session record. The merge runs under the
// session store's lock, so concurrent updates compose instead of
// overwriting each other. The session keeps its ID but its expiry
// restarts from now. Free-text fields are sanitized before persisting.
func (e *Engine) UpdateIdentity(ctx context.Context, patch IdentityPatch) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}

	updated, ok, err := e.sessions.Update(ctx, func(cur Identity) (Identity, error) {
		if patch.Name != nil {
			cur.Name = validate.Sanitize(*patch.Name)
		}
		if patch.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*patch.Email))
			if err := validate.Email(email); err != nil {
				return Identity{}, fmt.Errorf("%w: %v", ErrRejectedInput, err)
			}
			cur.Email = email
		}
		return cur, nil
	})
	if !ok {
		e.demoteIfStale(ctx)
		return Identity{}, ErrNotAuthenticated
	}
	if err != nil {
		if errors.Is(err, ErrRejectedInput) {
			return Identity{}, err
		}
		e.emitAudit(ctx, auditEventStorageError, false, Identity{}, "", err, nil)
		return Identity{}, err
	}

	state := stateFromRecord(updated)
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	e.emitAudit(ctx, auditEventIdentityUpdated, true, updated.Identity, updated.SessionID, nil, nil)

	return updated.Identity, nil
}

// State re-reads the persisted session (enforcing lazy expiry) and returns
// the current projection. The zero AuthState means anonymous.
func (e *Engine) State(ctx context.Context) AuthState {
	if e == nil {
		return AuthState{}
	}

	rec, ok := e.sessions.Get(ctx)
	if !ok {
		e.demoteIfStale(ctx)
		return AuthState{}
	}

	state := stateFromRecord(rec)
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	return state
}

// CurrentIdentity returns the authenticated identity, if any.
func (e *Engine) CurrentIdentity(ctx context.Context) (Identity, bool) {
	state := e.State(ctx)
	return state.Identity, state.Authenticated
}

// Role returns the authenticated role, or the empty role when anonymous.
func (e *Engine) Role(ctx context.Context) Role {
	return e.State(ctx).Role
}

// IsAuthenticated reports whether a live session exists.
func (e *Engine) IsAuthenticated(ctx context.Context) bool {
	return e.State(ctx).Authenticated
}

// MetricsSnapshot returns a copy of every counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.SnapshotNow()
}

// AuditDropped returns the number of audit events discarded under
// DropIfFull.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// adoptPersistedSession restores authentication state from storage at
// build time, so a restart keeps the user signed in until the record
// expires.
func (e *Engine) adoptPersistedSession(ctx context.Context) {
	rec, ok := e.sessions.Get(ctx)
	if !ok {
		return
	}

	e.mu.Lock()
	e.state = stateFromRecord(rec)
	e.mu.Unlock()

	e.metrics.Inc(metrics.MetricSessionAdopted)
	e.emitAudit(ctx, auditEventSessionAdopted, true, rec.Identity, rec.SessionID, nil, nil)
	e.log.Info("persisted session adopted",
		zap.String("session_id", rec.SessionID),
		zap.String("role", string(rec.Identity.Role)))
}

// demoteIfStale flips a cached authenticated state to anonymous after the
// underlying record disappeared (expiry or external clear) and emits the
// expiry audit event once.
func (e *Engine) demoteIfStale(ctx context.Context) {
	e.mu.Lock()
	prev := e.state
	e.state = AuthState{}
	e.mu.Unlock()

	if prev.Authenticated {
		e.emitAudit(ctx, auditEventSessionExpired, false, prev.Identity, prev.SessionID, nil, nil)
	}
}

func stateFromRecord(rec session.Record) AuthState {
	return AuthState{
		Identity:      rec.Identity,
		Role:          rec.Identity.Role,
		SessionID:     rec.SessionID,
		Authenticated: true,
	}
}

// limiterKey scopes attempt counting to one email+role slot, matching the
// directory segmentation: the same email under another role is a separate
// slot.
func limiterKey(email string, role Role) string {
	return email + "|" + string(role)
}

func validateCredentials(email, password string, role Role) error {
	if err := validate.Required(email); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if err := validate.Email(email); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if err := validate.Required(password); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	if !role.Valid() {
		return fmt.Errorf("role: unknown role %q", string(role))
	}
	return nil
}
