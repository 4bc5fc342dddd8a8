package ratelimit

import (
	"context"

	"github.com/ryhazerus/anystore"
)

// Wrap returns a Store that takes one permit from l before every Get, Set,
// Delete and List on s. Errors from s pass through unchanged. Scopes of the
// returned store share the same limiter.
//
// Closing the returned store closes s. The limiter is left open since it
// may be shared.
func Wrap(s anystore.Store, l *Limiter) anystore.Store {
	return &limited{base: s, limiter: l}
}

// Compile-time interface check.
var _ anystore.Store = (*limited)(nil)

type limited struct {
	base    anystore.Store
	limiter *Limiter
}

func (s *limited) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	return s.base.Get(ctx, addr)
}

func (s *limited) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.base.Set(ctx, addr, value)
}

func (s *limited) Delete(ctx context.Context, addr anystore.Address) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.base.Delete(ctx, addr)
}

func (s *limited) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.base.List(ctx, addr)
}

func (s *limited) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(s, addr)
}

func (s *limited) Close() error {
	return anystore.Close(s.base)
}
