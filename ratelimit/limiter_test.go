package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// waitQueued polls until n callers are queued on l.
func waitQueued(t *testing.T, l *Limiter, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.Usage().Waiting != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d queued callers, have %d", n, l.Usage().Waiting)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLimiterFailFastStrategy(t *testing.T) {
	l := New(Quota{Name: "test-api", Limit: 3, Window: PerMinute, Strategy: FailFast})
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
	}

	err := l.Wait(ctx)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got: %v", err)
	}

	var limErr *LimitExceededError
	if !errors.As(err, &limErr) {
		t.Fatalf("expected *LimitExceededError, got %T", err)
	}
	if limErr.Quota.Name != "test-api" {
		t.Errorf("quota name = %q, want %q", limErr.Quota.Name, "test-api")
	}
	if limErr.Used != 3 {
		t.Errorf("used = %d, want 3", limErr.Used)
	}
	if until := time.Until(limErr.ResetAt); until <= 0 || until > time.Minute {
		t.Errorf("reset in %v, want within the next minute", until)
	}
	if got := err.Error(); got != "ratelimit: limit exceeded for test-api (3/3)" {
		t.Errorf("error = %q", got)
	}
}

func TestLimiterWaitSpansWindow(t *testing.T) {
	const window = 100 * time.Millisecond
	l := New(Quota{Name: "w", Limit: 2, Window: Every(window)})
	defer l.Close()
	ctx := context.Background()

	begin := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if elapsed := time.Since(begin); elapsed < window {
		t.Errorf("3 permits with limit 2 took %v, want at least %v", elapsed, window)
	}
}

func TestLimiterFIFO(t *testing.T) {
	l := New(Quota{Name: "fifo", Limit: 1, Window: PerHour})
	defer l.Close()
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	const n = 4
	order := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			if err := l.Wait(ctx); err != nil {
				t.Error(err)
				return
			}
			order <- i
		}(i)
		// Make sure caller i is queued before caller i+1 arrives.
		waitQueued(t, l, i+1)
	}

	// Each reset opens a window with room for exactly one caller.
	for want := 0; want < n; want++ {
		l.Reset()
		select {
		case got := <-order:
			if got != want {
				t.Errorf("grant order: got caller %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("caller %d was never granted", want)
		}
	}
}

func TestLimiterCancelledWaitDoesNotConsume(t *testing.T) {
	l := New(Quota{Name: "cancel", Limit: 1, Window: PerHour})
	defer l.Close()

	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	u := l.Usage()
	if u.Used != 1 || u.Waiting != 0 {
		t.Errorf("usage after cancel = %+v, want used 1 and nobody waiting", u)
	}
}

func TestLimiterCancelledContextBeforeWait(t *testing.T) {
	l := New(Quota{Name: "c", Limit: 5, Window: PerMinute})
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if u := l.Usage(); u.Used != 0 {
		t.Errorf("used = %d, want 0", u.Used)
	}
}

func TestLimiterLogOnlyStrategy(t *testing.T) {
	var reached []int
	l := New(
		Quota{Name: "log-api", Limit: 1, Window: PerMinute, Strategy: LogOnly},
		WithOnLimitReached(func(q Quota, used int) {
			reached = append(reached, used)
		}),
	)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("request %d (LogOnly) should not error, got: %v", i+1, err)
		}
	}
	if len(reached) != 2 || reached[0] != 1 || reached[1] != 2 {
		t.Errorf("callback calls = %v, want [1 2]", reached)
	}
	if u := l.Usage(); u.Used != 3 {
		t.Errorf("used = %d, want 3", u.Used)
	}
}

func TestLimiterConcurrent(t *testing.T) {
	l := New(Quota{Name: "concurrent-api", Limit: 100, Window: PerMinute, Strategy: FailFast})
	defer l.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Wait(ctx)
		}()
	}

	wg.Wait()
	close(errs)

	var allowed, blocked int
	for err := range errs {
		if err == nil {
			allowed++
		} else if errors.Is(err, ErrLimitExceeded) {
			blocked++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
	if blocked != 100 {
		t.Errorf("blocked = %d, want 100", blocked)
	}
}

func TestLimiterReset(t *testing.T) {
	l := New(Quota{Name: "reset-api", Limit: 1, Window: PerHour})
	defer l.Close()
	ctx := context.Background()

	l.Wait(ctx)

	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()
	waitQueued(t, l, 1)

	l.Reset()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("after reset, expected nil error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued caller not released by Reset")
	}
	if u := l.Usage(); u.Used != 1 {
		t.Errorf("used after reset = %d, want 1", u.Used)
	}
}

func TestLimiterClose(t *testing.T) {
	l := New(Quota{Name: "close", Limit: 1, Window: PerHour})
	ctx := context.Background()
	l.Wait(ctx)

	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()
	waitQueued(t, l, 1)

	l.Close()

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("queued caller: got %v, want ErrClosed", err)
	}
	if err := l.Wait(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: got %v, want ErrClosed", err)
	}
}

func TestLimiterUnlimited(t *testing.T) {
	l := New(Quota{Name: "free"})
	defer l.Close()

	for i := 0; i < 1000; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLimitExceededErrorWait(t *testing.T) {
	past := &LimitExceededError{ResetAt: time.Now().Add(-time.Second)}
	if err := past.Wait(context.Background()); err != nil {
		t.Errorf("reset in the past: got %v, want nil", err)
	}

	future := &LimitExceededError{ResetAt: time.Now().Add(time.Hour)}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := future.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("reset in the future: got %v, want deadline exceeded", err)
	}
}

func TestWindowString(t *testing.T) {
	tests := []struct {
		w    Window
		want string
	}{
		{PerSecond, "PerSecond"},
		{PerMinute, "PerMinute"},
		{PerDay, "PerDay"},
		{Every(250 * time.Millisecond), "Every(250ms)"},
	}
	for _, tt := range tests {
		if got := tt.w.String(); got != tt.want {
			t.Errorf("%d: got %q, want %q", tt.w, got, tt.want)
		}
	}
}
