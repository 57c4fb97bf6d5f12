package domain

import "time"

// RetryPolicy describes a bounded retry loop with exponential backoff. Both
// the extraction engine and the orchestrator consume the same shape instead
// of hand-rolled sleep loops.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the upstream extractor's tolerances: three
// attempts, 2s/4s/8s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the delay to apply after the given 1-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retryable reports whether a failed attempt should be retried. Permanent
// failure classes short-circuit the loop immediately.
func (p RetryPolicy) Retryable(err error) bool {
	return err != nil && !KindOf(err).Permanent()
}
