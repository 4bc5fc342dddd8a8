package store

import (
	"context"

	"github.com/ryhazerus/anystore"
)

// Compile-time interface check.
var _ anystore.Store = (*TieredStore)(nil)

// TieredStore wraps a persistent store with an in-memory cache. Writes go to
// both stores (write-through); reads check memory first and fall back to the
// persistent store on a miss. Listings always come from the persistent
// store, which is the source of truth.
//
// The cache only stays coherent when every write goes through the same
// TieredStore.
type TieredStore struct {
	memory     *MemoryStore
	persistent anystore.Store
}

// NewTieredStore creates a TieredStore backed by the given persistent store.
// An internal MemoryStore is created automatically.
func NewTieredStore(persistent anystore.Store) *TieredStore {
	return &TieredStore{
		memory:     NewMemoryStore(),
		persistent: persistent,
	}
}

// Get reads from memory first. On a miss it falls back to the persistent
// store and backfills memory.
func (t *TieredStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	if v, ok, _ := t.memory.Get(ctx, addr); ok {
		return v, true, nil
	}

	v, ok, err := t.persistent.Get(ctx, addr)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.memory.Set(ctx, addr, v)
	return v, true, nil
}

// Set writes to the persistent store and then to memory. Memory is only
// updated once the durable write succeeded.
func (t *TieredStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if err := t.persistent.Set(ctx, addr, value); err != nil {
		return err
	}
	return t.memory.Set(ctx, addr, value)
}

// Delete removes the value from both stores.
func (t *TieredStore) Delete(ctx context.Context, addr anystore.Address) error {
	_ = t.memory.Delete(ctx, addr)
	return t.persistent.Delete(ctx, addr)
}

// List delegates to the persistent store.
func (t *TieredStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	return t.persistent.List(ctx, addr)
}

// Scope returns a view of t rooted at addr.
func (t *TieredStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(t, addr)
}

// Close closes the persistent backend. The in-memory store needs no cleanup.
func (t *TieredStore) Close() error {
	return anystore.Close(t.persistent)
}
