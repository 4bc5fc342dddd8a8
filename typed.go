package anystore

import (
	"context"

	"github.com/ryhazerus/anystore/codec"
)

// Typed is a view of a Store that reads and writes values of type V
// through a codec. Addresses are not bound to a type: reading an address
// as a type other than the one it was written with is caught only by the
// codec, as a *DecodeError.
type Typed[V any] struct {
	store Store
	codec codec.Codec[V]
}

// NewTyped binds s to c.
func NewTyped[V any](s Store, c codec.Codec[V]) Typed[V] {
	return Typed[V]{store: s, codec: c}
}

// Store returns the underlying byte-level store.
func (t Typed[V]) Store() Store { return t.store }

// Get returns the value at addr. The boolean is false if nothing is stored
// there. Stored bytes the codec rejects yield a *DecodeError.
func (t Typed[V]) Get(ctx context.Context, addr Address) (V, bool, error) {
	var zero V
	b, ok, err := t.store.Get(ctx, addr)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode(b)
	if err != nil {
		return zero, false, &DecodeError{Address: addr, Err: err}
	}
	return v, true, nil
}

// Set encodes v and stores it at addr.
func (t Typed[V]) Set(ctx context.Context, addr Address, v V) error {
	b, err := t.codec.Encode(v)
	if err != nil {
		return &EncodeError{Address: addr, Err: err}
	}
	return t.store.Set(ctx, addr, b)
}

// Delete removes the value at addr.
func (t Typed[V]) Delete(ctx context.Context, addr Address) error {
	return t.store.Delete(ctx, addr)
}

// List returns the children of addr.
func (t Typed[V]) List(ctx context.Context, addr Address) ([]Address, error) {
	return t.store.List(ctx, addr)
}

// Scope returns a typed view rooted at addr.
func (t Typed[V]) Scope(addr Address) Typed[V] {
	return Typed[V]{store: t.store.Scope(addr), codec: t.codec}
}

// At returns the Location of addr in t.
func (t Typed[V]) At(addr Address) Location[V] {
	return Location[V]{store: t, addr: addr}
}

// Location pairs a typed store with an address, so a position in the
// hierarchy can be passed around and navigated further.
type Location[V any] struct {
	store Typed[V]
	addr  Address
}

// Address returns the address of l.
func (l Location[V]) Address() Address { return l.addr }

// Child returns the location one level below l.
func (l Location[V]) Child(segment string) Location[V] {
	return Location[V]{store: l.store, addr: l.addr.Child(segment)}
}

// Parent returns the location one level above l. The boolean is false at
// the root.
func (l Location[V]) Parent() (Location[V], bool) {
	p, ok := l.addr.Parent()
	return Location[V]{store: l.store, addr: p}, ok
}

// Get reads the value at l.
func (l Location[V]) Get(ctx context.Context) (V, bool, error) {
	return l.store.Get(ctx, l.addr)
}

// Set writes v at l.
func (l Location[V]) Set(ctx context.Context, v V) error {
	return l.store.Set(ctx, l.addr, v)
}

// Delete removes the value at l.
func (l Location[V]) Delete(ctx context.Context) error {
	return l.store.Delete(ctx, l.addr)
}

// Exists reports whether a value is stored at l, without decoding it.
func (l Location[V]) Exists(ctx context.Context) (bool, error) {
	_, ok, err := l.store.store.Get(ctx, l.addr)
	return ok, err
}

// List returns the locations one level below l.
func (l Location[V]) List(ctx context.Context) ([]Location[V], error) {
	children, err := l.store.List(ctx, l.addr)
	if err != nil {
		return nil, err
	}
	out := make([]Location[V], len(children))
	for i, c := range children {
		out[i] = Location[V]{store: l.store, addr: c}
	}
	return out, nil
}
