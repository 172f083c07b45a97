// Package retry classifies delivery outcomes and decides whether a
// request should be retried, surfaced, or given up on. The policy is a
// pure function of (outcome, attempt); all sleeping and queuing happens
// in the executor.
package retry

import (
	"time"

	"github.com/KBH222/reliq/backoff"
)

// Outcome classifies the result of a single delivery attempt.
type Outcome int

const (
	// OutcomeSuccess is a 2xx (or other non-error) status.
	OutcomeSuccess Outcome = iota
	// OutcomeClientError is a 4xx status. Terminal: resending an
	// identical payload cannot fix a client-input problem.
	OutcomeClientError
	// OutcomeServerError is a 5xx status, treated as transient.
	OutcomeServerError
	// OutcomeNetworkError is a transport-level failure: the request
	// may not have arrived or been processed at all.
	OutcomeNetworkError
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeClientError:
		return "client_error"
	case OutcomeServerError:
		return "server_error"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Transient reports whether the outcome is eligible for retry.
func (o Outcome) Transient() bool {
	return o == OutcomeServerError || o == OutcomeNetworkError
}

// Classify maps a transport result to an Outcome. A non-nil err always
// classifies as a network error, so transport exceptions never escape
// unclassified.
func Classify(status int, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeNetworkError
	case status >= 500:
		return OutcomeServerError
	case status >= 400:
		return OutcomeClientError
	default:
		return OutcomeSuccess
	}
}

// Verdict is the action the executor takes after an attempt.
type Verdict int

const (
	// VerdictSucceed resolves the request with the response as-is.
	// Client errors succeed too: callers must inspect the status.
	VerdictSucceed Verdict = iota
	// VerdictRetryAfter schedules another attempt after Decision.Delay.
	VerdictRetryAfter
	// VerdictExhausted gives up: the retry budget is spent.
	VerdictExhausted
)

// Decision is the policy output for a single attempt.
type Decision struct {
	Verdict Verdict
	// Delay is how long to back off before the next attempt.
	// Only meaningful for VerdictRetryAfter.
	Delay time.Duration
}

// Policy decides retry behaviour. Safe for concurrent use.
type Policy struct {
	// MaxRetries is the number of retries allowed after the initial
	// attempt. Attempt indexes at or beyond it exhaust the budget.
	MaxRetries int
	// Backoff computes the delay schedule.
	Backoff backoff.Strategy
}

// NewPolicy creates a Policy. A nil strategy falls back to the default
// exponential schedule.
func NewPolicy(maxRetries int, bo backoff.Strategy) *Policy {
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Policy{MaxRetries: maxRetries, Backoff: bo}
}

// Decide maps the outcome of attempt number attempt (0-indexed) to a
// Decision. Success and client errors terminate immediately; server and
// network errors retry with backoff while attempt < MaxRetries.
func (p *Policy) Decide(outcome Outcome, attempt int) Decision {
	if !outcome.Transient() {
		return Decision{Verdict: VerdictSucceed}
	}
	if attempt < p.MaxRetries {
		return Decision{Verdict: VerdictRetryAfter, Delay: p.Backoff.Delay(attempt)}
	}
	return Decision{Verdict: VerdictExhausted}
}
