package anystore

import (
	"context"
	"fmt"
)

// Filter returns a Store that hides every address for which keep returns
// false, together with everything beneath it. keep receives addresses
// relative to the root of s. Hidden addresses read as absent and are left
// out of listings; writing or deleting them fails with ErrFiltered.
func Filter(s Store, keep func(Address) bool) Store {
	return &filtered{base: s, keep: keep}
}

// Compile-time interface check.
var _ Store = (*filtered)(nil)

type filtered struct {
	base Store
	keep func(Address) bool
}

func (f *filtered) hidden(addr Address) bool {
	cur := Root
	for _, seg := range addr.Segments() {
		cur = cur.Child(seg)
		if !f.keep(cur) {
			return true
		}
	}
	return false
}

func (f *filtered) Get(ctx context.Context, addr Address) ([]byte, bool, error) {
	if f.hidden(addr) {
		return nil, false, nil
	}
	return f.base.Get(ctx, addr)
}

func (f *filtered) Set(ctx context.Context, addr Address, value []byte) error {
	if f.hidden(addr) {
		return fmt.Errorf("%w: %s", ErrFiltered, addr)
	}
	return f.base.Set(ctx, addr, value)
}

func (f *filtered) Delete(ctx context.Context, addr Address) error {
	if f.hidden(addr) {
		return fmt.Errorf("%w: %s", ErrFiltered, addr)
	}
	return f.base.Delete(ctx, addr)
}

func (f *filtered) List(ctx context.Context, addr Address) ([]Address, error) {
	if f.hidden(addr) {
		return []Address{}, nil
	}
	children, err := f.base.List(ctx, addr)
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, len(children))
	for _, c := range children {
		if f.keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *filtered) Scope(addr Address) Store {
	return NewScope(f, addr)
}
