// Package portalauth provides the client-side session, sign-in, and
// access-control engine for the employee portal: credential verification
// against a pluggable directory, an obfuscated persisted session with lazy
// expiry, a sliding-window sign-in limiter, and role-aware route guarding
// (see the guard sub-package).
//
// The package is designed for concurrent callers: Engine methods are safe
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// portalauth is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (AuthState, Credentials, AuditEvent). Session
// encoding, rate limiting, and the secure storage wrapper live under
// internal/ and are never exported; storage backends plug in through
// [store.Backend].
//
// # What this package must NOT do
//
//   - Expose storage clients, encoding details, or internal stores in its
//     public API.
//   - Treat the obfuscated session blob as tamper-proof: encoding is
//     casual-inspection hardening only, and the engine re-validates
//     everything it reads back.
//   - Import any sub-package that re-imports portalauth (no import cycles).
package portalauth
