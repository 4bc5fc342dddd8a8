// Package redis provides an [anystore.Store] backed by Redis.
//
// Each value is a plain Redis string. The key is the configured prefix
// followed by the address segments, all joined with ':'. Inside a segment
// '%' is written as "%25" and ':' as "%3A" so any segment round-trips.
//
// List uses SCAN with a MATCH pattern over every key below the address and
// reduces the result to immediate children, so it costs a pass over the
// keyspace and does not observe a consistent snapshot under concurrent
// writes. On a cluster client every master is scanned.
package redis

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/ryhazerus/anystore"
)

const backend = "redis"

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "anystore"

// Compile-time interface check.
var _ anystore.Store = (*RedisStore)(nil)

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithPrefix sets the key prefix. An empty prefix is replaced by
// DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(r *RedisStore) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithScanCount sets the COUNT hint passed to SCAN. Default 100.
func WithScanCount(n int64) Option {
	return func(r *RedisStore) {
		if n > 0 {
			r.scanCount = n
		}
	}
}

// New creates a Redis-backed store. The store takes ownership of client
// and closes it on Close.
func New(client redis.UniversalClient, opts ...Option) *RedisStore {
	r := &RedisStore{
		client:    client,
		prefix:    DefaultPrefix,
		scanCount: 100,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var (
	segmentEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	segmentUnescaper = strings.NewReplacer("%3A", ":", "%25", "%")
	globEscaper      = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)
)

func (r *RedisStore) key(addr anystore.Address) string {
	var b strings.Builder
	b.WriteString(r.prefix)
	for _, seg := range addr.Segments() {
		b.WriteByte(':')
		b.WriteString(segmentEscaper.Replace(seg))
	}
	return b.String()
}

// address decodes a key below the prefix back into an Address.
func (r *RedisStore) address(key string) (anystore.Address, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix+":")
	if !ok {
		return anystore.Root, false
	}
	parts := strings.Split(rest, ":")
	for i, p := range parts {
		parts[i] = segmentUnescaper.Replace(p)
	}
	return anystore.NewAddress(parts...), true
}

// Get returns the value stored at addr.
func (r *RedisStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(addr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, anystore.NewBackendError(backend, "get", addr, err)
	}
	return b, true, nil
}

// Set stores value at addr without expiry.
func (r *RedisStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	err := r.client.Set(ctx, r.key(addr), value, 0).Err()
	return anystore.NewBackendError(backend, "set", addr, err)
}

// Delete removes the key for addr.
func (r *RedisStore) Delete(ctx context.Context, addr anystore.Address) error {
	err := r.client.Del(ctx, r.key(addr)).Err()
	return anystore.NewBackendError(backend, "delete", addr, err)
}

// List scans every key below addr and returns the distinct immediate
// children in ascending order.
func (r *RedisStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	pattern := globEscaper.Replace(r.key(addr)) + ":*"

	var (
		mu          sync.Mutex
		descendants []anystore.Address
	)
	scan := func(ctx context.Context, c redis.Cmdable) error {
		iter := c.Scan(ctx, 0, pattern, r.scanCount).Iterator()
		for iter.Next(ctx) {
			if a, ok := r.address(iter.Val()); ok {
				mu.Lock()
				descendants = append(descendants, a)
				mu.Unlock()
			}
		}
		return iter.Err()
	}

	var err error
	if cc, ok := r.client.(*redis.ClusterClient); ok {
		err = cc.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
			return scan(ctx, c)
		})
	} else {
		err = scan(ctx, r.client)
	}
	if err != nil {
		return nil, anystore.NewBackendError(backend, "list", addr, err)
	}
	return anystore.ImmediateChildren(addr, descendants), nil
}

// Scope returns a view of r rooted at addr.
func (r *RedisStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(r, addr)
}

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
