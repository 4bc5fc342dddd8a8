package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/store"
	"github.com/ryhazerus/anystore/storetest"
)

func TestWrapConformance(t *testing.T) {
	storetest.Run(t, "Wrap", func(t *testing.T) anystore.Store {
		l := New(Quota{Name: "conformance", Limit: 1000, Window: PerSecond})
		t.Cleanup(func() { l.Close() })
		return Wrap(store.NewMemoryStore(), l)
	})
}

func TestWrapTakesOnePermitPerOperation(t *testing.T) {
	l := New(Quota{Name: "ops", Limit: 4, Window: PerMinute, Strategy: FailFast})
	defer l.Close()
	s := Wrap(store.NewMemoryStore(), l)
	ctx := context.Background()
	a := anystore.NewAddress("a", "b")

	if err := s.Set(ctx, a, []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(ctx, anystore.NewAddress("a")); err != nil {
		t.Fatal(err)
	}
	// Scopes stay behind the same limiter.
	if err := s.Scope(anystore.NewAddress("a")).Delete(ctx, anystore.NewAddress("b")); err != nil {
		t.Fatal(err)
	}

	if u := l.Usage(); u.Used != 4 {
		t.Errorf("used = %d, want 4", u.Used)
	}
	if _, _, err := s.Get(ctx, a); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("fifth operation: got %v, want ErrLimitExceeded", err)
	}
}

type failingStore struct {
	anystore.Store
	err error
}

func (f failingStore) Get(context.Context, anystore.Address) ([]byte, bool, error) {
	return nil, false, f.err
}

func TestWrapPassesErrorsThrough(t *testing.T) {
	l := New(Quota{Name: "errs", Limit: 10, Window: PerMinute})
	defer l.Close()
	want := anystore.NewBackendError("fake", "get", anystore.Root, errors.New("boom"))
	s := Wrap(failingStore{Store: store.NewMemoryStore(), err: want}, l)

	_, _, err := s.Get(context.Background(), anystore.Root)
	if err != want {
		t.Errorf("got %v, want the wrapped store's error unchanged", err)
	}
}
