package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/storetest"
	bbolt "go.etcd.io/bbolt"
)

func newTestBoltStore(t *testing.T, opts ...Option) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.bolt")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func TestBoltStoreConformance(t *testing.T) {
	storetest.Run(t, "BoltStore", func(t *testing.T) anystore.Store {
		s, _ := newTestBoltStore(t)
		return s
	})
}

func TestBoltStorePersistence(t *testing.T) {
	s, path := newTestBoltStore(t, WithBucket("custom"))
	ctx := context.Background()
	addr := anystore.NewAddress("a", "b")

	if err := s.Set(ctx, addr, []byte("kept")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, WithBucket("custom"))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, addr)
	if err != nil || !ok || string(got) != "kept" {
		t.Errorf("after reopen: %q, %v, %v", got, ok, err)
	}
}

func TestBoltStoreListIsOrdered(t *testing.T) {
	s, _ := newTestBoltStore(t)
	defer s.Close()
	ctx := context.Background()

	for _, seg := range []string{"c", "a", "b"} {
		s.Set(ctx, anystore.NewAddress("k", seg, "leaf"), []byte(seg))
	}

	got, err := s.List(ctx, anystore.NewAddress("k"))
	if err != nil {
		t.Fatal(err)
	}
	want := []anystore.Address{
		anystore.NewAddress("k", "a"),
		anystore.NewAddress("k", "b"),
		anystore.NewAddress("k", "c"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBoltStoreLockTimeout(t *testing.T) {
	s, path := newTestBoltStore(t)
	defer s.Close()

	_, err := Open(path, WithTimeout(50*time.Millisecond))
	if !errors.Is(err, bbolt.ErrTimeout) {
		t.Errorf("second open: got %v, want timeout", err)
	}
}
