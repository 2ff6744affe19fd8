// Package resilience provides reliability and fault tolerance patterns for the
// relay orchestration core. It includes a per-route circuit breaker bank,
// outbound error classification, and adaptive backoff computation.
//
// The package supports:
//   - Circuit breakers per route (relay address or direct connection)
//   - Error classification into transient, rate-limit, and permanent failures
//   - Exponential backoff with class-dependent multipliers and bounded jitter
//
// Usage Example:
//
//	bank := circuitbreaker.NewBank(circuitbreaker.DefaultConfig())
//	done, err := bank.Allow(route)
//	if err != nil {
//	    return err // route is suspended, no request is attempted
//	}
//	result, err := fetch()
//	done(err == nil)
package resilience
