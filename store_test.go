package anystore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/store"
)

func TestNewScopeFlattensNestedScopes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	nested := s.Scope(anystore.NewAddress("a")).Scope(anystore.NewAddress("b"))
	nested.Set(ctx, anystore.NewAddress("c"), []byte("v"))

	if _, ok, _ := s.Get(ctx, anystore.NewAddress("a", "b", "c")); !ok {
		t.Error("nested scope wrote to the wrong address")
	}
	children, _ := nested.List(ctx, anystore.Root)
	if len(children) != 1 || children[0] != anystore.NewAddress("c") {
		t.Errorf("list = %v, want [/c]", children)
	}
}

func TestNewScopeAtRootIsIdentity(t *testing.T) {
	s := store.NewMemoryStore()
	if got := anystore.NewScope(s, anystore.Root); got != anystore.Store(s) {
		t.Errorf("scope at root returned %T, want the base store", got)
	}
}

type closer struct {
	anystore.Store
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestClose(t *testing.T) {
	c := &closer{Store: store.NewMemoryStore()}
	if err := anystore.Close(c); err != nil || !c.closed {
		t.Errorf("Close: err=%v closed=%v", err, c.closed)
	}

	// Scopes borrow their base store.
	if err := anystore.Close(anystore.NewScope(c, anystore.NewAddress("x"))); err != nil {
		t.Errorf("closing a scope: %v", err)
	}
}

func TestNewBackendError(t *testing.T) {
	addr := anystore.NewAddress("k")
	cause := errors.New("connection refused")

	if anystore.NewBackendError("x", "get", addr, nil) != nil {
		t.Error("nil cause must stay nil")
	}

	err := anystore.NewBackendError("redis", "get", addr, cause)
	if !errors.Is(err, anystore.ErrBackend) || !errors.Is(err, cause) {
		t.Errorf("got %v, want ErrBackend wrapping the cause", err)
	}
	if got := err.Error(); got != "anystore/redis: get /k: connection refused" {
		t.Errorf("message = %q", got)
	}

	if again := anystore.NewBackendError("outer", "set", addr, err); again != err {
		t.Errorf("rewrapped a BackendError: %v", again)
	}
	if ctxErr := anystore.NewBackendError("x", "get", addr, context.Canceled); ctxErr != context.Canceled {
		t.Errorf("context errors must pass through, got %v", ctxErr)
	}
}
