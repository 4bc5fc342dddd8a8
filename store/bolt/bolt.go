// Package bolt provides an [anystore.Store] backed by a bbolt database
// file.
//
// All values live in one bucket keyed by the address's string form. Since
// bbolt keeps keys sorted, List is a cursor scan over the key range of the
// address and returns children in ascending order.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ryhazerus/anystore"
	bbolt "go.etcd.io/bbolt"
)

const backend = "bolt"

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "anystore"

// Compile-time interface check.
var _ anystore.Store = (*BoltStore)(nil)

// BoltStore is a persistent Store backed by bbolt.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

type config struct {
	bucket  string
	timeout time.Duration
}

// Option configures a BoltStore.
type Option func(*config)

// WithBucket sets the bucket holding the values.
func WithBucket(name string) Option {
	return func(c *config) {
		if name != "" {
			c.bucket = name
		}
	}
}

// WithTimeout bounds how long Open waits for the file lock held by another
// process. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Open opens (or creates) the database file at path and ensures the bucket
// exists.
func Open(path string, opts ...Option) (*BoltStore, error) {
	cfg := config{bucket: DefaultBucket, timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: cfg.timeout})
	if err != nil {
		return nil, fmt.Errorf("anystore/bolt: open %s: %w", path, err)
	}

	bucket := []byte(cfg.bucket)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("anystore/bolt: create bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket}, nil
}

// Get returns a copy of the value stored at addr.
func (s *BoltStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key := []byte(addr.String())
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		// A cursor tells an empty value apart from a missing key.
		k, v := tx.Bucket(s.bucket).Cursor().Seek(key)
		if bytes.Equal(k, key) {
			value = bytes.Clone(v)
			if value == nil {
				value = []byte{}
			}
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, anystore.NewBackendError(backend, "get", addr, err)
	}
	return value, found, nil
}

// Set stores value at addr.
func (s *BoltStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(addr.String()), value)
	})
	return anystore.NewBackendError(backend, "set", addr, err)
}

// Delete removes the value at addr.
func (s *BoltStore) Delete(ctx context.Context, addr anystore.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(addr.String()))
	})
	return anystore.NewBackendError(backend, "delete", addr, err)
}

// List scans the keys below addr and reduces them to immediate children.
func (s *BoltStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	from, to := addr.KeyRange()
	var descendants []anystore.Address
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek([]byte(from)); k != nil && string(k) < to; k, _ = c.Next() {
			descendants = append(descendants, anystore.ParseAddress(string(k)))
		}
		return nil
	})
	if err != nil {
		return nil, anystore.NewBackendError(backend, "list", addr, err)
	}
	return anystore.ImmediateChildren(addr, descendants), nil
}

// Scope returns a view of s rooted at addr.
func (s *BoltStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(s, addr)
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
