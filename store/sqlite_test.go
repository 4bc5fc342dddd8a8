package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/storetest"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreConformance(t *testing.T) {
	storetest.Run(t, "SQLiteStore", func(t *testing.T) anystore.Store {
		return newTestSQLiteStore(t)
	})
}

func TestSQLiteStoreListIgnoresPrefixSiblings(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// "/a0" sorts right after the "/a/" range and "/ab" shares its prefix.
	s.Set(ctx, anystore.NewAddress("a", "x"), []byte("1"))
	s.Set(ctx, anystore.NewAddress("a0"), []byte("2"))
	s.Set(ctx, anystore.NewAddress("ab", "y"), []byte("3"))

	got, err := s.List(ctx, anystore.NewAddress("a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != anystore.NewAddress("a", "x") {
		t.Errorf("list /a: got %v, want [/a/x]", got)
	}
}

func TestSQLiteStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.db")
	ctx := context.Background()
	addr := anystore.NewAddress("persisted", "key")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Set(ctx, addr, []byte("value")); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, ok, err := s2.Get(ctx, addr)
	if err != nil || !ok || string(got) != "value" {
		t.Errorf("after reopen: got %q, %v, %v; want value, true, nil", got, ok, err)
	}
}

func TestSQLiteStoreClosedReturnsBackendError(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	_, _, err = s.Get(context.Background(), anystore.NewAddress("k"))
	if err == nil {
		t.Fatal("expected error after close")
	}
	var be *anystore.BackendError
	if !errors.As(err, &be) || be.Backend != "sqlite" || be.Op != "get" {
		t.Errorf("got %v, want sqlite get BackendError", err)
	}
}
