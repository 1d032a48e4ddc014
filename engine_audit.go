package portalauth

import (
	"context"
	"errors"
	"time"

	"github.com/sbiswal/portalauth/store"
)

const (
	auditEventSignInSuccess       = "signin_success"
	auditEventSignInFailure       = "signin_failure"
	auditEventSignInRateLimited   = "signin_rate_limited"
	auditEventSignInRejectedInput = "signin_rejected_input"
	auditEventSignOut             = "signout"
	auditEventIdentityUpdated     = "identity_updated"
	auditEventSessionAdopted      = "session_adopted"
	auditEventSessionExpired      = "session_expired"
	auditEventStorageError        = "storage_error"
)

// AuditErrorCode is the stable error vocabulary carried in
// [AuditEvent.Error] so sinks never parse Go error strings.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrRejectedInput      AuditErrorCode = "rejected_input"
	auditErrNotAuthenticated   AuditErrorCode = "not_authenticated"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity Identity,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    identity.ID,
		Email:     identity.Email,
		Role:      string(identity.Role),
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}

	e.audit.Emit(ctx, event, err)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRejectedInput):
		return auditErrRejectedInput
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrDirectoryUnavailable),
		errors.Is(err, store.ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// now is separated so tests can pin event timestamps through WithClock.
func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
