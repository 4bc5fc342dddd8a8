package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/ratelimit"
	"github.com/ryhazerus/anystore/store"
	"github.com/ryhazerus/anystore/store/airtable"
	"github.com/ryhazerus/anystore/store/bolt"
	"github.com/ryhazerus/anystore/store/dynamo"
	"github.com/ryhazerus/anystore/store/redis"
)

// openStore builds the configured backend, wraps it with observation and
// the optional rate limit and applies the scope.
func (a *app) openStore(ctx context.Context) (anystore.Store, error) {
	name := a.v.GetString("backend")
	s, err := a.openBackend(ctx, name)
	if err != nil {
		return nil, err
	}
	s = a.observed(s, name)

	if rate := a.v.GetInt("rate-limit"); rate > 0 {
		lim := ratelimit.New(ratelimit.Quota{
			Name:   name,
			Limit:  rate,
			Window: ratelimit.PerSecond,
		}, ratelimit.WithLogger(a.logger))
		s = &limited{Store: ratelimit.Wrap(s, lim), limiter: lim, inner: s}
	}

	if scope := a.v.GetString("scope"); scope != "" {
		s = &scoped{Store: s.Scope(anystore.ParseAddress(scope)), owner: s}
	}
	return s, nil
}

func (a *app) pathOr(def string) string {
	if p := a.v.GetString("path"); p != "" {
		return p
	}
	return def
}

func (a *app) openBackend(ctx context.Context, name string) (anystore.Store, error) {
	switch name {
	case "memory":
		return store.NewMemoryStore(), nil
	case "fs":
		return store.NewFileStore(a.pathOr("."), store.WithFileLogger(a.logger))
	case "sqlite":
		return store.NewSQLiteStore(a.pathOr("anystore.db"))
	case "tiered":
		db, err := store.NewSQLiteStore(a.pathOr("anystore.db"))
		if err != nil {
			return nil, err
		}
		return store.NewTieredStore(db), nil
	case "bolt":
		return bolt.Open(a.pathOr("anystore.bolt"))
	case "redis":
		client := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs: strings.Split(a.v.GetString("redis-addr"), ","),
		})
		return redis.New(client, redis.WithPrefix(a.v.GetString("redis-prefix"))), nil
	case "dynamo":
		client, err := a.dynamoClient(ctx)
		if err != nil {
			return nil, err
		}
		return dynamo.New(client, a.v.GetString("dynamo-table"), dynamo.WithLogger(a.logger)), nil
	case "airtable":
		return airtable.Open(a.v.GetString("airtable-token"),
			airtable.WithQuota(ratelimit.Quota{
				Name:   "airtable",
				Limit:  a.v.GetInt("airtable-rate"),
				Window: ratelimit.PerSecond,
			}),
			airtable.WithLogger(a.logger),
		)
	default:
		return nil, fmt.Errorf("invalid backend %s", name)
	}
}

func (a *app) dynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region := a.v.GetString("aws-region"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if id := a.v.GetString("aws-access-key-id"); id != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, a.v.GetString("aws-secret-access-key"), ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := a.v.GetString("aws-endpoint")
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// limited closes its limiter along with the store.
type limited struct {
	anystore.Store
	limiter *ratelimit.Limiter
	inner   anystore.Store
}

func (l *limited) Close() error {
	return errors.Join(l.limiter.Close(), anystore.Close(l.inner))
}

// scoped closes the store it was scoped from.
type scoped struct {
	anystore.Store
	owner anystore.Store
}

func (s *scoped) Close() error {
	return anystore.Close(s.owner)
}
