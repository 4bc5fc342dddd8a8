// Package observe decorates an [anystore.Store] with structured logging and
// metrics.
//
// Every operation is logged at debug level and counted in a
// VictoriaMetrics set:
//
//	anystore_operations_total{store="name",op="get"}
//	anystore_errors_total{store="name",op="get"}
//	anystore_operation_duration_seconds{store="name",op="get"}
package observe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ryhazerus/anystore"
	"go.uber.org/zap"
)

// Store wraps another Store and observes every call to it.
type Store struct {
	inner  anystore.Store
	name   string
	set    *metrics.Set
	logger *zap.Logger
}

// Compile-time interface checks.
var (
	_ anystore.Store = (*Store)(nil)
	_ io.Closer      = (*Store)(nil)
)

// Option configures an observed Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetricsSet registers the metrics in set instead of a private one.
// Several stores may share a set as long as their names differ.
func WithMetricsSet(set *metrics.Set) Option {
	return func(s *Store) {
		s.set = set
	}
}

// Wrap returns inner observed under name.
func Wrap(inner anystore.Store, name string, opts ...Option) *Store {
	s := &Store{
		inner:  inner,
		name:   name,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.set == nil {
		s.set = metrics.NewSet()
	}
	s.logger = s.logger.With(zap.String("store", name))
	return s
}

// Metrics returns the set the store reports to.
func (s *Store) Metrics() *metrics.Set {
	return s.set
}

// WritePrometheus writes the store's metrics in Prometheus text format.
func (s *Store) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

func (s *Store) metric(family, op string) string {
	return fmt.Sprintf("%s{store=%q,op=%q}", family, s.name, op)
}

// record counts one finished operation and logs it.
func (s *Store) record(op string, addr anystore.Address, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	s.set.GetOrCreateCounter(s.metric("anystore_operations_total", op)).Inc()
	s.set.GetOrCreateHistogram(s.metric("anystore_operation_duration_seconds", op)).Update(elapsed.Seconds())
	if err != nil {
		s.set.GetOrCreateCounter(s.metric("anystore_errors_total", op)).Inc()
		fields = append(fields, zap.Error(err))
	}
	if ce := s.logger.Check(zap.DebugLevel, op); ce != nil {
		ce.Write(append(fields, zap.Stringer("address", addr), zap.Duration("duration", elapsed))...)
	}
}

func (s *Store) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	start := time.Now()
	v, ok, err := s.inner.Get(ctx, addr)
	s.record("get", addr, start, err, zap.Bool("found", ok), zap.Int("bytes", len(v)))
	return v, ok, err
}

func (s *Store) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	start := time.Now()
	err := s.inner.Set(ctx, addr, value)
	s.record("set", addr, start, err, zap.Int("bytes", len(value)))
	return err
}

func (s *Store) Delete(ctx context.Context, addr anystore.Address) error {
	start := time.Now()
	err := s.inner.Delete(ctx, addr)
	s.record("delete", addr, start, err)
	return err
}

func (s *Store) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	start := time.Now()
	children, err := s.inner.List(ctx, addr)
	s.record("list", addr, start, err, zap.Int("children", len(children)))
	return children, err
}

// Scope returns a view of s rooted at addr that is still observed.
func (s *Store) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(s, addr)
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return anystore.Close(s.inner)
}
