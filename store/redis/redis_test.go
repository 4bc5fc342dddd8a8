package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/storetest"
)

func newTestRedisStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return New(client, opts...), mr
}

func TestRedisStoreConformance(t *testing.T) {
	storetest.Run(t, "RedisStore", func(t *testing.T) anystore.Store {
		s, _ := newTestRedisStore(t)
		return s
	})
}

func TestRedisStoreKeyLayout(t *testing.T) {
	s, mr := newTestRedisStore(t, WithPrefix("app"))
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, anystore.NewAddress("users", "a:b", "100%"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	got, err := mr.Get("app:users:a%3Ab:100%25")
	if err != nil {
		t.Fatalf("expected escaped key: %v (keys: %v)", err, mr.Keys())
	}
	if got != "v" {
		t.Errorf("value: got %q, want v", got)
	}
}

func TestRedisStoreListEscapedAddress(t *testing.T) {
	s, _ := newTestRedisStore(t)
	defer s.Close()
	ctx := context.Background()

	// Glob characters in the listed address must match literally.
	s.Set(ctx, anystore.NewAddress("a*", "x"), []byte("1"))
	s.Set(ctx, anystore.NewAddress("ab", "y"), []byte("2"))

	got, err := s.List(ctx, anystore.NewAddress("a*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != anystore.NewAddress("a*", "x") {
		t.Errorf("list: got %v, want [/a*/x]", got)
	}
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	c1 := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	c2 := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s1 := New(c1, WithPrefix("one"))
	s2 := New(c2, WithPrefix("two"))
	defer s1.Close()
	defer s2.Close()
	ctx := context.Background()

	s1.Set(ctx, anystore.NewAddress("k"), []byte("1"))

	if _, ok, _ := s2.Get(ctx, anystore.NewAddress("k")); ok {
		t.Error("value leaked across prefixes")
	}
	if got, _ := s2.List(ctx, anystore.Root); len(got) != 0 {
		t.Errorf("list across prefixes: got %v", got)
	}
}

func TestRedisStoreBackendError(t *testing.T) {
	s, mr := newTestRedisStore(t)
	defer s.Close()
	mr.Close()

	_, _, err := s.Get(context.Background(), anystore.NewAddress("k"))
	if !errors.Is(err, anystore.ErrBackend) {
		t.Fatalf("got %v, want ErrBackend", err)
	}
	var be *anystore.BackendError
	if errors.As(err, &be) && be.Backend != "redis" {
		t.Errorf("backend: got %q, want redis", be.Backend)
	}
}
