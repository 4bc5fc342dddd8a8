package ratelimit

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrLimitExceeded is returned when a FailFast quota is spent.
var ErrLimitExceeded = errors.New("ratelimit: limit exceeded")

// ErrClosed is returned to callers waiting on, or arriving at, a closed
// limiter.
var ErrClosed = errors.New("ratelimit: limiter closed")

// LimitExceededError provides details about which quota was spent and
// supports waiting for the window to reset.
type LimitExceededError struct {
	Quota   Quota
	Used    int
	ResetAt time.Time
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("ratelimit: limit exceeded for %s (%d/%d)", e.Quota.Name, e.Used, e.Quota.Limit)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// Wait blocks until the window that was spent resets or the context is
// cancelled. It does not take a permit.
func (e *LimitExceededError) Wait(ctx context.Context) error {
	delay := time.Until(e.ResetAt)
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Usage is a point-in-time view of a limiter.
type Usage struct {
	Used    int       // permits granted in the current window
	Limit   int       // permits per window
	Waiting int       // callers queued for a permit
	ResetAt time.Time // end of the current window; zero when idle
}

type waiter struct {
	ready   chan struct{}
	granted bool
	gen     uint64 // window the permit was granted in
	err     error
}

// Limiter hands out permits according to a Quota. It is safe for
// concurrent use.
//
// A window opens with the first permit granted while no window is active
// and lasts Quota.Window. Callers that find the window spent are queued in
// arrival order; when the window ends a timer opens the next one and
// grants permits to the head of the queue.
type Limiter struct {
	quota          Quota
	logger         *zap.Logger
	onLimitReached func(Quota, int)

	mu      sync.Mutex
	start   time.Time // zero when no window is active
	used    int
	gen     uint64
	waiters list.List // *waiter
	timer   *time.Timer
	closed  bool
}

// New creates a Limiter for q.
func New(q Quota, opts ...Option) *Limiter {
	l := &Limiter{
		quota:  q,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With(zap.String("quota", q.Name))
	return l
}

// Quota returns the limiter's quota.
func (l *Limiter) Quota() Quota {
	return l.quota
}

// Wait takes one permit. With the Wait strategy it blocks until a permit is
// granted, ctx is done or the limiter is closed. A caller that gives up
// never consumes a permit.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.quota.Limit <= 0 {
		l.mu.Unlock()
		return nil
	}

	now := time.Now()
	l.release(now)
	if l.waiters.Len() == 0 && l.used < l.quota.Limit {
		l.take(now)
		l.mu.Unlock()
		return nil
	}

	if l.onLimitReached != nil {
		l.onLimitReached(l.quota, l.used)
	}

	switch l.quota.Strategy {
	case LogOnly:
		l.take(now)
		l.logger.Warn("rate limit exceeded", zap.Int("used", l.used), zap.Int("limit", l.quota.Limit))
		l.mu.Unlock()
		return nil
	case FailFast:
		err := &LimitExceededError{
			Quota:   l.quota,
			Used:    l.used,
			ResetAt: l.start.Add(l.quota.Window.Duration()),
		}
		l.mu.Unlock()
		return err
	}

	w := &waiter{ready: make(chan struct{})}
	e := l.waiters.PushBack(w)
	l.schedule(now)
	l.logger.Debug("waiting for permit", zap.Int("queued", l.waiters.Len()))
	l.mu.Unlock()

	select {
	case <-w.ready:
		return w.err
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case !w.granted:
		l.waiters.Remove(e)
	case w.err != nil:
		return w.err
	case w.gen == l.gen:
		// Hand the unused permit to the next waiter.
		l.used--
		l.release(time.Now())
	}
	return ctx.Err()
}

// take grants one permit, opening a window if none is active. Callers hold
// l.mu.
func (l *Limiter) take(now time.Time) {
	if l.start.IsZero() {
		l.start = now
	}
	l.used++
}

// release closes an expired window and grants permits to queued waiters
// while the current window has room. Callers hold l.mu.
func (l *Limiter) release(now time.Time) {
	if !l.start.IsZero() && now.Sub(l.start) >= l.quota.Window.Duration() {
		l.start = time.Time{}
		l.used = 0
		l.gen++
	}
	for l.waiters.Len() > 0 && l.used < l.quota.Limit {
		w := l.waiters.Remove(l.waiters.Front()).(*waiter)
		l.take(now)
		w.granted = true
		w.gen = l.gen
		close(w.ready)
	}
	l.schedule(now)
}

// schedule arms the timer for the end of the current window if anyone is
// waiting for it. Callers hold l.mu.
func (l *Limiter) schedule(now time.Time) {
	if l.waiters.Len() == 0 || l.timer != nil || l.closed {
		return
	}
	d := l.start.Add(l.quota.Window.Duration()).Sub(now)
	l.timer = time.AfterFunc(d, l.tick)
}

func (l *Limiter) tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timer = nil
	if l.closed {
		return
	}
	l.release(time.Now())
}

// Usage returns the limiter's current usage.
func (l *Limiter) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if !l.closed {
		l.release(now)
	}
	u := Usage{
		Used:    l.used,
		Limit:   l.quota.Limit,
		Waiting: l.waiters.Len(),
	}
	if !l.start.IsZero() {
		u.ResetAt = l.start.Add(l.quota.Window.Duration())
	}
	return u
}

// Reset forgets the current window. Queued callers are granted permits in
// a fresh window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.start = time.Time{}
	l.used = 0
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.release(time.Now())
}

// Close stops the limiter. Queued callers and later calls to Wait fail
// with ErrClosed.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	for l.waiters.Len() > 0 {
		w := l.waiters.Remove(l.waiters.Front()).(*waiter)
		w.granted = true
		w.err = ErrClosed
		close(w.ready)
	}
	return nil
}
