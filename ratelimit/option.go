package ratelimit

import "go.uber.org/zap"

// Option configures the Limiter.
type Option func(*Limiter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(lim *Limiter) {
		lim.logger = l
	}
}

// WithOnLimitReached sets a callback that fires whenever a caller finds the
// quota spent, with the number of permits used in the current window. It is
// called for every strategy but is the primary mechanism for LogOnly
// quotas. The callback runs with the limiter locked and must not call back
// into it.
func WithOnLimitReached(fn func(Quota, int)) Option {
	return func(lim *Limiter) {
		lim.onLimitReached = fn
	}
}
