// Package securestore layers the obfuscation codec and key namespacing on
// top of a raw storage backend.
//
// Every value is written under "secure_<key>" as an obfuscated token.
// Reads fail soft: an absent key is not an error, and an undecodable entry
// is purged and reported as absent — callers must not be able to observe a
// corrupt record.
package securestore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sbiswal/portalauth/internal/metrics"
	"github.com/sbiswal/portalauth/internal/obfuscate"
	"github.com/sbiswal/portalauth/store"
)

const keyPrefix = "secure_"

// Store is the namespaced, obfuscating persistence layer.
type Store struct {
	backend store.Backend
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a secure store over backend. A nil logger falls back to
// zap.NewNop; metrics may be nil.
func New(backend store.Backend, log *zap.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log, metrics: m}
}

// SetItem obfuscates v and writes it under the namespaced key. On a write
// failure the slot is best-effort deleted so a stale-but-decodable record
// can never outlive a failed overwrite.
func (s *Store) SetItem(ctx context.Context, key string, v any) error {
	token, err := obfuscate.Encode(v)
	if err != nil {
		return err
	}

	physical := keyPrefix + key
	if err := s.backend.Set(ctx, physical, []byte(token)); err != nil {
		s.metrics.Inc(metrics.MetricStorageError)
		s.log.Warn("secure store write failed",
			zap.String("key", key),
			zap.Error(err))
		if delErr := s.backend.Delete(ctx, physical); delErr != nil {
			s.log.Warn("secure store cleanup after failed write also failed",
				zap.String("key", key),
				zap.Error(delErr))
		}
		return fmt.Errorf("secure store: set %q: %w", key, err)
	}
	return nil
}

// GetItem reads the namespaced key into out. It returns (false, nil) when
// no value is present, which includes the corrupt-entry case: an entry that
// fails to decode is deleted and treated as absent. The error return is
// reserved for backend unavailability.
func (s *Store) GetItem(ctx context.Context, key string, out any) (bool, error) {
	physical := keyPrefix + key

	data, err := s.backend.Get(ctx, physical)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		s.metrics.Inc(metrics.MetricStorageError)
		s.log.Warn("secure store read failed",
			zap.String("key", key),
			zap.Error(err))
		return false, fmt.Errorf("secure store: get %q: %w", key, err)
	}

	if err := obfuscate.Decode(string(data), out); err != nil {
		s.metrics.Inc(metrics.MetricCorruptEntryPurged)
		s.log.Warn("purging undecodable secure store entry",
			zap.String("key", key),
			zap.Error(err))
		if delErr := s.backend.Delete(ctx, physical); delErr != nil {
			s.log.Warn("purge of corrupt entry failed",
				zap.String("key", key),
				zap.Error(delErr))
		}
		return false, nil
	}
	return true, nil
}

// RemoveItem deletes the namespaced key. Idempotent; safe when nothing is
// stored.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, keyPrefix+key); err != nil {
		s.metrics.Inc(metrics.MetricStorageError)
		s.log.Warn("secure store delete failed",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("secure store: remove %q: %w", key, err)
	}
	return nil
}
