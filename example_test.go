package anystore_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/codec"
	"github.com/ryhazerus/anystore/store"
)

func ExampleNewTyped() {
	s := store.NewMemoryStore()
	ints := anystore.NewTyped(s, codec.JSON[int]())
	ctx := context.Background()

	_ = ints.Set(ctx, anystore.NewAddress("a", "b"), 42)
	v, ok, err := ints.Get(ctx, anystore.NewAddress("a", "b"))
	fmt.Println(v, ok, err)

	children, _ := s.List(ctx, anystore.NewAddress("a"))
	fmt.Println(children)
	// Output:
	// 42 true <nil>
	// [/a/b]
}

func ExampleLocation() {
	type user struct {
		Name string `json:"name"`
	}
	users := anystore.NewTyped(store.NewMemoryStore(), codec.JSON[user]())
	ctx := context.Background()

	alice := users.At(anystore.NewAddress("users")).Child("alice")
	_ = alice.Set(ctx, user{Name: "Alice"})

	exists, _ := alice.Exists(ctx)
	u, _, _ := alice.Get(ctx)
	fmt.Println(alice.Address(), exists, u.Name)
	// Output: /users/alice true Alice
}

func ExampleFilter() {
	s := store.NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, anystore.NewAddress("public", "a"), []byte("1"))
	_ = s.Set(ctx, anystore.NewAddress(".secret", "b"), []byte("2"))

	visible := anystore.Filter(s, func(a anystore.Address) bool {
		return !strings.HasPrefix(a.Last(), ".")
	})

	children, _ := visible.List(ctx, anystore.Root)
	_, found, _ := visible.Get(ctx, anystore.NewAddress(".secret", "b"))
	fmt.Println(children, found)
	// Output: [/public] false
}

func ExampleWalk() {
	s := store.NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, anystore.NewAddress("a", "b"), []byte("1"))
	_ = s.Set(ctx, anystore.NewAddress("a", "c", "d"), []byte("2"))

	_ = anystore.Walk(ctx, s, anystore.Root, func(a anystore.Address, leaf bool) error {
		fmt.Println(a, leaf)
		return nil
	})
	// Output:
	// /a false
	// /a/b true
	// /a/c false
	// /a/c/d true
}

func ExampleNewScope() {
	s := store.NewMemoryStore()
	ctx := context.Background()

	tenant := s.Scope(anystore.NewAddress("tenants", "acme"))
	_ = tenant.Set(ctx, anystore.NewAddress("plan"), []byte("pro"))

	v, _, _ := s.Get(ctx, anystore.NewAddress("tenants", "acme", "plan"))
	children, _ := tenant.List(ctx, anystore.Root)
	fmt.Println(string(v), children)
	// Output: pro [/plan]
}
