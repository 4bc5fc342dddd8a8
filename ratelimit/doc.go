// Package ratelimit throttles calls to external services, such as the
// Airtable API, to a [Quota] of permits per time [Window].
//
// # Key Concepts
//
//   - [Quota] names a budget: a permit limit, a [Window] and a [Strategy].
//   - [Window] is the length of one counting period. It starts with the
//     first permit granted after the previous period ran out.
//   - [Strategy] controls what happens when the budget is spent: queue the
//     caller until a permit frees up (the default), fail fast, or log only.
//   - [Limiter] hands out permits. Waiters are served in arrival order and
//     replenishment is driven by a timer, so an idle limiter costs nothing.
//
// # Quick Start
//
//	limiter := ratelimit.New(ratelimit.Quota{
//		Name:   "airtable",
//		Limit:  5,
//		Window: ratelimit.PerSecond,
//	})
//	defer limiter.Close()
//
//	// Every store operation takes one permit.
//	s := ratelimit.Wrap(backend, limiter)
//
//	// Or limit every outgoing HTTP request.
//	client := &http.Client{
//		Transport: limiter.Transport(nil),
//	}
//
// See the [Limiter] documentation for the full API.
package ratelimit
