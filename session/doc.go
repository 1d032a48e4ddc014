// Package session holds the canonical session record model and its
// lifecycle manager.
//
// A record is the persisted proof of authentication: identity plus issue
// and expiry timestamps, obfuscated at rest under a single namespaced
// storage key. Expiry is enforced lazily on read; a record is never
// observable past its expiry and reading an expired record deletes it.
//
// # Architecture boundaries
//
// Only the root engine constructs a [Manager], and only through the
// manager's Create/Clear entry points is the storage key ever written.
// Nothing in this package reaches the identity directory or the rate
// limiter.
package session
