package store

import (
	"context"
	"testing"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, "MemoryStore", func(t *testing.T) anystore.Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreListOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, seg := range []string{"c", "a", "b"} {
		if err := s.Set(ctx, anystore.NewAddress("k", seg), []byte(seg)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(ctx, anystore.NewAddress("k"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/k/a", "/k/b", "/k/c"}
	if len(got) != len(want) {
		t.Fatalf("got %d children, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("child %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMemoryStoreDeletePrunes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	deep := anystore.NewAddress("a", "b", "c")
	s.Set(ctx, deep, []byte("v"))
	s.Delete(ctx, deep)

	if !s.root.children.Empty() {
		t.Errorf("expected empty levels to be pruned, root has %d children", s.root.children.Size())
	}

	got, _ := s.List(ctx, anystore.Root)
	if len(got) != 0 {
		t.Errorf("list root after delete: got %v, want empty", got)
	}
}

func TestMemoryStoreDeleteKeepsChildren(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, anystore.NewAddress("a"), []byte("parent"))
	s.Set(ctx, anystore.NewAddress("a", "b"), []byte("child"))
	s.Delete(ctx, anystore.NewAddress("a"))

	if _, ok, _ := s.Get(ctx, anystore.NewAddress("a")); ok {
		t.Error("expected parent value to be gone")
	}
	if v, ok, _ := s.Get(ctx, anystore.NewAddress("a", "b")); !ok || string(v) != "child" {
		t.Errorf("child: got %q, %v; want child, true", v, ok)
	}
}
