// Package rate implements the in-process sliding-window attempt limiter
// that gates sign-in throughput.
//
// # Architecture boundaries
//
// The limiter holds process-lifetime state only; nothing here is persisted.
// It knows nothing about credentials or sessions — callers build the key
// (identifier + role) and map [ErrRateLimited] to their own error surface.
package rate
