// Package store defines the durable key/value boundary behind session
// persistence.
//
// A [Backend] is the Go stand-in for the browser-local durable store the
// portal originally wrote to: a flat namespace of byte values with
// last-write-wins semantics. Backends report absence with [ErrNotFound]
// and infrastructure failures with [ErrUnavailable]; they never interpret
// the stored bytes.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value. Absence is an
// expected condition, not a failure.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable wraps quota, I/O, and connectivity failures of the
// underlying store.
var ErrUnavailable = errors.New("storage unavailable")

// Backend is a minimal durable key/value store. Implementations must make
// Delete idempotent and must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
