package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/ryhazerus/anystore"
)

type node struct {
	value    []byte
	has      bool
	children *treemap.Map // string -> *node
}

func newNode() *node {
	return &node{children: treemap.NewWithStringComparator()}
}

func (n *node) child(seg string) *node {
	c, ok := n.children.Get(seg)
	if !ok {
		return nil
	}
	return c.(*node)
}

// Compile-time interface check.
var _ anystore.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation.
// It is safe for concurrent use. Values are lost when the process exits.
// List returns children in ascending segment order.
type MemoryStore struct {
	mu   sync.RWMutex
	root *node
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: newNode()}
}

func (m *MemoryStore) find(addr anystore.Address) *node {
	n := m.root
	for _, seg := range addr.Segments() {
		if n = n.child(seg); n == nil {
			return nil
		}
	}
	return n
}

// Get returns a copy of the value stored at addr.
func (m *MemoryStore) Get(_ context.Context, addr anystore.Address) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.find(addr)
	if n == nil || !n.has {
		return nil, false, nil
	}
	return bytes.Clone(n.value), true, nil
}

// Set stores a copy of value at addr, creating intermediate levels.
func (m *MemoryStore) Set(_ context.Context, addr anystore.Address, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.root
	for _, seg := range addr.Segments() {
		c := n.child(seg)
		if c == nil {
			c = newNode()
			n.children.Put(seg, c)
		}
		n = c
	}
	n.value = bytes.Clone(value)
	n.has = true
	return nil
}

// Delete removes the value at addr. Levels left with neither a value nor
// children are pruned.
func (m *MemoryStore) Delete(_ context.Context, addr anystore.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := addr.Segments()
	path := make([]*node, 0, len(segs)+1)
	n := m.root
	path = append(path, n)
	for _, seg := range segs {
		if n = n.child(seg); n == nil {
			return nil
		}
		path = append(path, n)
	}
	n.value, n.has = nil, false

	for i := len(segs); i > 0; i-- {
		cur := path[i]
		if cur.has || !cur.children.Empty() {
			break
		}
		path[i-1].children.Remove(segs[i-1])
	}
	return nil
}

// List returns the children of addr in ascending order.
func (m *MemoryStore) List(_ context.Context, addr anystore.Address) ([]anystore.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]anystore.Address, 0)
	n := m.find(addr)
	if n == nil {
		return out, nil
	}
	for _, k := range n.children.Keys() {
		out = append(out, addr.Child(k.(string)))
	}
	return out, nil
}

// Scope returns a view of m rooted at addr.
func (m *MemoryStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(m, addr)
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
