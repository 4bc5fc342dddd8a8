package anystore

import (
	"context"
	"io"
)

// Store is the capability every backend and decorator implements. Values
// are opaque bytes at this level; use [Typed] to read and write domain
// values through a codec.
//
// Addresses passed to and returned from a Store are relative to that
// store's root. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored at addr. The boolean is false if no value
	// exists there; that is not an error.
	Get(ctx context.Context, addr Address) (value []byte, found bool, err error)

	// Set writes or overwrites the value at addr. Setting the same value
	// twice leaves the same observable state as setting it once.
	Set(ctx context.Context, addr Address, value []byte) error

	// Delete removes the value at addr. Deleting an absent value succeeds.
	Delete(ctx context.Context, addr Address) error

	// List returns the addresses exactly one level below addr. Order is
	// backend-defined unless the backend documents otherwise. An address
	// with no children, or that does not exist, yields an empty list.
	List(ctx context.Context, addr Address) ([]Address, error)

	// Scope returns a Store whose root is addr.
	Scope(addr Address) Store
}

// Close releases the resources held by s if it owns any. Stores that only
// borrow another store, such as scopes, are left untouched.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewScope returns a Store whose operations are relative to prefix on base.
// Scoping an already scoped store composes the prefixes over the same base,
// so no chain of wrappers builds up.
func NewScope(base Store, prefix Address) Store {
	if prefix.IsRoot() {
		return base
	}
	if s, ok := base.(*scoped); ok {
		return &scoped{base: s.base, prefix: s.prefix.Join(prefix)}
	}
	return &scoped{base: base, prefix: prefix}
}

// Compile-time interface check.
var _ Store = (*scoped)(nil)

type scoped struct {
	base   Store
	prefix Address
}

func (s *scoped) Get(ctx context.Context, addr Address) ([]byte, bool, error) {
	return s.base.Get(ctx, s.prefix.Join(addr))
}

func (s *scoped) Set(ctx context.Context, addr Address, value []byte) error {
	return s.base.Set(ctx, s.prefix.Join(addr), value)
}

func (s *scoped) Delete(ctx context.Context, addr Address) error {
	return s.base.Delete(ctx, s.prefix.Join(addr))
}

func (s *scoped) List(ctx context.Context, addr Address) ([]Address, error) {
	children, err := s.base.List(ctx, s.prefix.Join(addr))
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, len(children))
	for _, c := range children {
		if rel, ok := c.Rel(s.prefix); ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (s *scoped) Scope(addr Address) Store {
	return NewScope(s, addr)
}
