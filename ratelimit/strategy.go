package ratelimit

// Strategy defines the behavior when a quota is spent.
type Strategy int

const (
	// Wait queues the caller until a permit is available, the context is
	// done or the limiter is closed.
	Wait Strategy = iota
	// FailFast returns a *LimitExceededError immediately. The error's Wait
	// method lets callers opt into waiting for the window to reset.
	FailFast
	// LogOnly lets the call through and fires the OnLimitReached callback.
	LogOnly
)

func (s Strategy) String() string {
	switch s {
	case Wait:
		return "Wait"
	case FailFast:
		return "FailFast"
	case LogOnly:
		return "LogOnly"
	default:
		return "Unknown"
	}
}
