package store

import (
	"context"
	"testing"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/storetest"
)

func newTestTieredStore(t *testing.T) (*TieredStore, *SQLiteStore) {
	t.Helper()
	persistent := newTestSQLiteStore(t)
	ts := NewTieredStore(persistent)
	t.Cleanup(func() { ts.Close() })
	return ts, persistent
}

func TestTieredStoreConformance(t *testing.T) {
	storetest.Run(t, "TieredStore", func(t *testing.T) anystore.Store {
		ts, _ := newTestTieredStore(t)
		return ts
	})
}

func TestTieredStoreWriteThrough(t *testing.T) {
	ts, persistent := newTestTieredStore(t)
	ctx := context.Background()
	addr := anystore.NewAddress("k")

	if err := ts.Set(ctx, addr, []byte("v")); err != nil {
		t.Fatal(err)
	}

	if got, ok, _ := persistent.Get(ctx, addr); !ok || string(got) != "v" {
		t.Errorf("persistent: got %q, %v; want v, true", got, ok)
	}
	if got, ok, _ := ts.memory.Get(ctx, addr); !ok || string(got) != "v" {
		t.Errorf("memory: got %q, %v; want v, true", got, ok)
	}
}

func TestTieredStoreFallbackAndBackfill(t *testing.T) {
	ts, persistent := newTestTieredStore(t)
	ctx := context.Background()
	addr := anystore.NewAddress("k")

	// Write directly to persistent, bypassing memory.
	persistent.Set(ctx, addr, []byte("durable"))

	if _, ok, _ := ts.memory.Get(ctx, addr); ok {
		t.Fatal("memory should start empty")
	}

	got, ok, err := ts.Get(ctx, addr)
	if err != nil || !ok || string(got) != "durable" {
		t.Fatalf("fallback get: got %q, %v, %v", got, ok, err)
	}

	if got, ok, _ := ts.memory.Get(ctx, addr); !ok || string(got) != "durable" {
		t.Errorf("backfill: got %q, %v; want durable, true", got, ok)
	}
}

func TestTieredStoreDelete(t *testing.T) {
	ts, persistent := newTestTieredStore(t)
	ctx := context.Background()
	addr := anystore.NewAddress("k")

	ts.Set(ctx, addr, []byte("v"))
	if err := ts.Delete(ctx, addr); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := ts.memory.Get(ctx, addr); ok {
		t.Error("memory still holds the value")
	}
	if _, ok, _ := persistent.Get(ctx, addr); ok {
		t.Error("persistent still holds the value")
	}
}
