package storetest

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/codec"
)

// Factory returns a fresh, empty store for one subtest. The suite closes the
// store when the subtest ends; register further cleanup with t.Cleanup.
type Factory func(t *testing.T) anystore.Store

// Option adjusts which parts of the suite run.
type Option func(*config)

type config struct {
	nestedValues bool
}

// WithoutNestedValues skips the checks that need an address to hold a value
// and children at the same time.
func WithoutNestedValues() Option {
	return func(c *config) {
		c.nestedValues = false
	}
}

// Run runs the conformance suite against stores built by factory.
func Run(t *testing.T, name string, factory Factory, opts ...Option) {
	cfg := config{nestedValues: true}
	for _, o := range opts {
		o(&cfg)
	}

	open := func(t *testing.T) anystore.Store {
		t.Helper()
		s := factory(t)
		t.Cleanup(func() { anystore.Close(s) })
		return s
	}

	t.Run(name, func(t *testing.T) {
		t.Run("GetAbsent", func(t *testing.T) { testGetAbsent(t, open(t)) })
		t.Run("SetGet", func(t *testing.T) { testSetGet(t, open(t)) })
		t.Run("SetIdempotent", func(t *testing.T) { testSetIdempotent(t, open(t)) })
		t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
		t.Run("List", func(t *testing.T) { testList(t, open(t)) })
		t.Run("Segments", func(t *testing.T) { testSegments(t, open(t)) })
		t.Run("Scope", func(t *testing.T) { testScope(t, open(t)) })
		t.Run("Typed", func(t *testing.T) { testTyped(t, open(t)) })
		t.Run("Walk", func(t *testing.T) { testWalk(t, open(t)) })
		t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, open(t)) })
		if cfg.nestedValues {
			t.Run("NestedValues", func(t *testing.T) { testNestedValues(t, open(t)) })
		}
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func addr(segments ...string) anystore.Address {
	return anystore.NewAddress(segments...)
}

func mustSet(t *testing.T, s anystore.Store, a anystore.Address, v []byte) {
	t.Helper()
	if err := s.Set(context.Background(), a, v); err != nil {
		t.Fatalf("set %s: %v", a, err)
	}
}

func wantValue(t *testing.T, s anystore.Store, a anystore.Address, want []byte) {
	t.Helper()
	got, ok, err := s.Get(context.Background(), a)
	if err != nil {
		t.Fatalf("get %s: %v", a, err)
	}
	if !ok {
		t.Fatalf("get %s: not found, want %q", a, want)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("get %s = %q, want %q", a, got, want)
	}
}

func wantAbsent(t *testing.T, s anystore.Store, a anystore.Address) {
	t.Helper()
	got, ok, err := s.Get(context.Background(), a)
	if err != nil {
		t.Fatalf("get %s: %v", a, err)
	}
	if ok {
		t.Errorf("get %s = %q, want absent", a, got)
	}
}

// wantList compares a listing with the expected addresses, ignoring order.
func wantList(t *testing.T, s anystore.Store, a anystore.Address, want ...anystore.Address) {
	t.Helper()
	got, err := s.List(context.Background(), a)
	if err != nil {
		t.Fatalf("list %s: %v", a, err)
	}
	if diff := cmp.Diff(sortedStrings(want), sortedStrings(got)); diff != "" {
		t.Errorf("list %s mismatch (-want +got):\n%s", a, diff)
	}
}

func sortedStrings(addrs []anystore.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	slices.Sort(out)
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testGetAbsent(t *testing.T, s anystore.Store) {
	wantAbsent(t, s, addr("missing"))
	wantAbsent(t, s, addr("missing", "deeper"))
	wantList(t, s, addr("missing"))
}

func testSetGet(t *testing.T, s anystore.Store) {
	a := addr("a", "b")

	mustSet(t, s, a, []byte("one"))
	wantValue(t, s, a, []byte("one"))

	mustSet(t, s, a, []byte("two"))
	wantValue(t, s, a, []byte("two"))

	bin := []byte{0, 1, 254, 255}
	mustSet(t, s, addr("bin"), bin)
	wantValue(t, s, addr("bin"), []byte{0, 1, 254, 255})

	mustSet(t, s, addr("empty"), []byte{})
	wantValue(t, s, addr("empty"), []byte{})

	// The store must not alias caller buffers in either direction.
	in := []byte("abc")
	mustSet(t, s, addr("alias"), in)
	in[0] = 'X'
	wantValue(t, s, addr("alias"), []byte("abc"))

	out, _, err := s.Get(context.Background(), addr("alias"))
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 'Y'
	wantValue(t, s, addr("alias"), []byte("abc"))
}

func testSetIdempotent(t *testing.T, s anystore.Store) {
	a := addr("x", "y")
	mustSet(t, s, a, []byte("v"))
	mustSet(t, s, a, []byte("v"))

	wantValue(t, s, a, []byte("v"))
	wantList(t, s, addr("x"), a)
}

func testDelete(t *testing.T, s anystore.Store) {
	ctx := context.Background()
	a := addr("d", "e")

	if err := s.Delete(ctx, addr("never", "written")); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	mustSet(t, s, a, []byte("v"))
	mustSet(t, s, addr("d", "f"), []byte("w"))
	if err := s.Delete(ctx, a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantAbsent(t, s, a)
	wantValue(t, s, addr("d", "f"), []byte("w"))
	wantList(t, s, addr("d"), addr("d", "f"))

	if err := s.Delete(ctx, a); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func testList(t *testing.T, s anystore.Store) {
	mustSet(t, s, addr("l", "b"), []byte("1"))
	mustSet(t, s, addr("l", "c"), []byte("2"))
	mustSet(t, s, addr("l", "d", "e"), []byte("3"))
	mustSet(t, s, addr("l", "d", "f", "g"), []byte("4"))
	mustSet(t, s, addr("lx"), []byte("sibling"))

	wantList(t, s, addr("l"), addr("l", "b"), addr("l", "c"), addr("l", "d"))
	wantList(t, s, addr("l", "d"), addr("l", "d", "e"), addr("l", "d", "f"))
	wantList(t, s, addr("l", "b"))
	wantList(t, s, anystore.Root, addr("l"), addr("lx"))
}

func testSegments(t *testing.T, s anystore.Store) {
	segs := []string{"with space", "dots.in.name", "colon:seg", "percent%25", "star*", "ünïcode", `back\slash`}
	for i, seg := range segs {
		mustSet(t, s, addr("seg", seg), []byte(fmt.Sprint(i)))
	}
	for i, seg := range segs {
		wantValue(t, s, addr("seg", seg), []byte(fmt.Sprint(i)))
	}

	want := make([]anystore.Address, 0, len(segs))
	for _, seg := range segs {
		want = append(want, addr("seg", seg))
	}
	wantList(t, s, addr("seg"), want...)
}

func testScope(t *testing.T, s anystore.Store) {
	ctx := context.Background()
	sc := s.Scope(addr("scope"))

	mustSet(t, sc, addr("y"), []byte("via scope"))
	wantValue(t, s, addr("scope", "y"), []byte("via scope"))

	mustSet(t, s, addr("scope", "z", "w"), []byte("via base"))
	wantValue(t, sc, addr("z", "w"), []byte("via base"))

	wantList(t, sc, anystore.Root, addr("y"), addr("z"))
	wantList(t, sc, addr("z"), addr("z", "w"))

	nested := sc.Scope(addr("z"))
	wantValue(t, nested, addr("w"), []byte("via base"))
	wantValue(t, s.Scope(addr("scope", "z")), addr("w"), []byte("via base"))

	if err := sc.Delete(ctx, addr("y")); err != nil {
		t.Fatal(err)
	}
	wantAbsent(t, s, addr("scope", "y"))
}

func testTyped(t *testing.T, s anystore.Store) {
	ctx := context.Background()
	ints := anystore.NewTyped(s, codec.JSON[int]())

	if err := ints.Set(ctx, addr("a", "b"), 42); err != nil {
		t.Fatal(err)
	}
	got, ok, err := ints.Get(ctx, addr("a", "b"))
	if err != nil || !ok || got != 42 {
		t.Fatalf("typed get = %d, %v, %v; want 42, true, nil", got, ok, err)
	}
	wantList(t, s, addr("a"), addr("a", "b"))

	loc := ints.At(addr("a")).Child("b")
	exists, err := loc.Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v; want true, nil", exists, err)
	}

	mustSet(t, s, addr("a", "bad"), []byte("not json"))
	if _, _, err := ints.Get(ctx, addr("a", "bad")); err == nil {
		t.Fatal("expected decode error")
	}
}

func testWalk(t *testing.T, s anystore.Store) {
	mustSet(t, s, addr("w", "1"), []byte("x"))
	mustSet(t, s, addr("w", "2", "3"), []byte("x"))
	mustSet(t, s, addr("w", "2", "4", "5"), []byte("x"))

	var leaves []anystore.Address
	err := anystore.Walk(context.Background(), s, addr("w"), func(a anystore.Address, leaf bool) error {
		if leaf {
			leaves = append(leaves, a)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []anystore.Address{addr("w", "1"), addr("w", "2", "3"), addr("w", "2", "4", "5")}
	if diff := cmp.Diff(sortedStrings(want), sortedStrings(leaves)); diff != "" {
		t.Errorf("walk leaves mismatch (-want +got):\n%s", diff)
	}
}

func testConcurrent(t *testing.T, s anystore.Store) {
	const workers, perWorker = 8, 10
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a := addr("c", fmt.Sprint(w), fmt.Sprint(i))
				if err := s.Set(ctx, a, []byte(a.String())); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			a := addr("c", fmt.Sprint(w), fmt.Sprint(i))
			wantValue(t, s, a, []byte(a.String()))
		}
	}
	children, err := s.List(ctx, addr("c"))
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != workers {
		t.Errorf("list: got %d children, want %d", len(children), workers)
	}
}

func testNestedValues(t *testing.T, s anystore.Store) {
	ctx := context.Background()
	mustSet(t, s, addr("n"), []byte("parent"))
	mustSet(t, s, addr("n", "child"), []byte("child"))

	wantValue(t, s, addr("n"), []byte("parent"))
	wantList(t, s, addr("n"), addr("n", "child"))

	if err := s.Delete(ctx, addr("n")); err != nil {
		t.Fatal(err)
	}
	wantAbsent(t, s, addr("n"))
	wantValue(t, s, addr("n", "child"), []byte("child"))
	wantList(t, s, anystore.Root, addr("n"))
}
