package portalauth

import "errors"

var (
	// ErrInvalidCredentials is returned for every sign-in failure caused by
	// the credentials themselves. One error for unknown email, wrong
	// password, and wrong role keeps failures non-enumerating.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRateLimited is returned when a credential slot has exhausted its
	// sign-in attempts for the current window.
	ErrRateLimited = errors.New("too many failed attempts, please try again later")
	// ErrRejectedInput is returned when sign-in input fails validation
	// before any directory lookup happens.
	ErrRejectedInput = errors.New("sign-in input rejected")
	// ErrNotAuthenticated is returned by operations that require a live
	// session when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrDirectoryUnavailable is returned when the credential directory
	// cannot be reached. Distinct from ErrInvalidCredentials so callers can
	// retry instead of counting it as a failed attempt.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrEngineNotReady is returned by Engine methods on a nil or unbuilt
	// engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
