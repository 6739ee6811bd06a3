package resilience

import "time"

// Policy is the retry and circuit-breaker budget for one operation.
// The retry-vs-no-retry distinction is an explicit per-operation value
// so the contract stays auditable instead of being inferred at call
// sites.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// NoRetry performs exactly one attempt with no breaker. Used where a
// repeat must be an explicit caller action, e.g. resubmitting partially
// sent upload bytes.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// TransientRetry absorbs short network blips behind exponential backoff
// and a circuit breaker. Used for status polling, where the server-side
// job keeps running while the client's connection flaps.
func TransientRetry() Policy {
	return Policy{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     800 * time.Millisecond,
		Multiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (p Policy) normalize() Policy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.InitialBackoff < 0 {
		out.InitialBackoff = 0
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.Multiplier < 1.0 {
		out.Multiplier = 1.0
	}
	if out.BreakerEnabled {
		if out.BreakerMinRequests == 0 {
			out.BreakerMinRequests = 10
		}
		if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
			out.BreakerFailureRatio = 0.5
		}
		if out.BreakerOpenTimeout <= 0 {
			out.BreakerOpenTimeout = 30 * time.Second
		}
		if out.BreakerHalfOpenMaxCalls == 0 {
			out.BreakerHalfOpenMaxCalls = 1
		}
	}
	return out
}
