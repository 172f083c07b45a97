// Package backoff provides pluggable retry delay strategies for request
// delivery. All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait after attempt n failed (0-indexed).
	// Attempt 0 is the initial delivery; Delay(0) is the wait before
	// the first retry.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Base * 2^attempt, Max).
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(base, maxDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Max: maxDelay}
}

// Delay returns Base * 2^attempt, capped at Max. Large attempt values
// that would overflow saturate at the cap instead of wrapping
// negative.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return clampDelay(float64(e.Base)*math.Pow(2, float64(attempt)), e.Max)
}

// clampDelay converts a computed delay to a Duration, holding values
// beyond the Duration range at maxDelay, or at the largest Duration
// when uncapped.
func clampDelay(f float64, maxDelay time.Duration) time.Duration {
	if math.IsInf(f, 1) || f >= math.MaxInt64 {
		if maxDelay > 0 {
			return maxDelay
		}
		return math.MaxInt64
	}
	d := time.Duration(f)
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Base * 2^attempt, Max)].
// This prevents thundering herd when many clients reconnect at once.
type ExponentialWithJitter struct {
	Base time.Duration
	Max  time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(base, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Base: base, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Base * 2^attempt, Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := clampDelay(float64(e.Base)*math.Pow(2, float64(attempt)), e.Max)
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the executor:
// plain Exponential with 1s base and 30s max. Jitter is available but
// not the default so the delay schedule stays predictable.
func DefaultStrategy() Strategy {
	return NewExponential(1*time.Second, 30*time.Second)
}
