package anystore

import (
	"context"
	"errors"
)

// SkipChildren can be returned by a WalkFunc to stop Walk from descending
// below the address it was called with.
var SkipChildren = errors.New("anystore: skip children")

// WalkFunc is called by Walk for every address found. leaf is true when
// the address has no children.
type WalkFunc func(addr Address, leaf bool) error

// Walk visits every address below root depth-first, listing one level at a
// time. Listings are taken as the walk proceeds, so concurrent writers may
// or may not be observed.
func Walk(ctx context.Context, s Store, root Address, fn WalkFunc) error {
	children, err := s.List(ctx, root)
	if err != nil {
		return err
	}
	return walk(ctx, s, children, fn)
}

func walk(ctx context.Context, s Store, children []Address, fn WalkFunc) error {
	for _, c := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		grand, err := s.List(ctx, c)
		if err != nil {
			return err
		}
		if err := fn(c, len(grand) == 0); err != nil {
			if errors.Is(err, SkipChildren) {
				continue
			}
			return err
		}
		if err := walk(ctx, s, grand, fn); err != nil {
			return err
		}
	}
	return nil
}
