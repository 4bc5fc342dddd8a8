// Package anystore provides a uniform, type-safe way to read and write
// hierarchically addressed values in heterogeneous stores: in-memory maps,
// filesystem trees, embedded databases, Redis and tabular APIs such as
// Airtable. Callers hold a [Store] and never the concrete backend.
//
// # Key Concepts
//
//   - [Address] names a location as an immutable sequence of segments.
//     Every backend maps it onto its own native key scheme.
//   - [Store] is the get/set/delete/list/scope capability shared by all
//     backends and decorators.
//   - [Typed] binds a Store to a codec from package codec, so values go in
//     and come out as Go types. [Location] pairs a typed store with an
//     address.
//   - Decorators wrap a Store and implement Store themselves: [NewScope]
//     and [Filter] here, the rate limiter in package ratelimit, logging and
//     metrics in package observe, caching with store.NewTieredStore.
//
// Absence is not an error: Get reports it with a false boolean. Malformed
// stored data surfaces as a [*DecodeError] and native backend failures as a
// [*BackendError].
//
// # Quick Start
//
//	s := store.NewMemoryStore()
//	ints := anystore.NewTyped(s, codec.JSON[int]())
//
//	ctx := context.Background()
//	_ = ints.Set(ctx, anystore.NewAddress("a", "b"), 42)
//	v, ok, err := ints.Get(ctx, anystore.NewAddress("a", "b")) // 42, true, nil
//
//	children, _ := s.List(ctx, anystore.NewAddress("a")) // [/a/b]
//
// This is not a database: there are no transactions, no durability beyond
// what the backend offers and no query language.
package anystore
