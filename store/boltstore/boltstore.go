// Package boltstore provides a bbolt-backed storage backend.
package boltstore

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/sbiswal/portalauth/store"
)

var bucketName = []byte("portalauth")

// Store implements [store.Backend] backed by a bbolt database file. This is
// the default durable store for single-machine deployments.
type Store struct {
	db *bbolt.DB
}

var _ store.Backend = (*Store)(nil)

// New returns a backend over an already-open bbolt database.
func New(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) a bbolt database at path and returns a backend
// over it.
func Open(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("%w: opening bbolt db: %v", store.ErrUnavailable, err)
	}
	return New(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return store.ErrNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			return store.ErrNotFound
		}
		// Bbolt values are only valid inside the transaction.
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
