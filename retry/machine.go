package retry

import (
	"fmt"
	"time"
)

// StateKind identifies a phase of a single logical delivery.
type StateKind int

const (
	// StateAttempting means a delivery attempt is in flight.
	StateAttempting StateKind = iota
	// StateBackoff means the last attempt failed transiently and the
	// next one may not run before Until.
	StateBackoff
	// StateSucceeded means the request resolved with a response.
	StateSucceeded
	// StateQueued means retries were exhausted offline and the request
	// was handed to the durable queue.
	StateQueued
	// StateFailed means retries were exhausted online; the failure is
	// surfaced to the caller.
	StateFailed
)

// String returns the state name for logs.
func (k StateKind) String() string {
	switch k {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateQueued:
		return "queued"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a node in the delivery state machine.
type State struct {
	Kind StateKind
	// Attempt is the 0-indexed attempt number. Meaningful for
	// Attempting (the attempt in flight) and Backoff (the attempt
	// that just failed).
	Attempt int
	// Until is when the next attempt may run. Backoff only.
	Until time.Time
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s.Kind == StateSucceeded || s.Kind == StateQueued || s.Kind == StateFailed
}

// Machine tracks the state of one logical delivery through the retry
// loop. It exists so every transition is explicit and testable in
// isolation, rather than implied by loop control flow. Not safe for
// concurrent use; each delivery owns its own Machine.
type Machine struct {
	policy *Policy
	state  State
}

// NewMachine creates a Machine in Attempting(0).
func NewMachine(policy *Policy) *Machine {
	return &Machine{
		policy: policy,
		state:  State{Kind: StateAttempting},
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Observe feeds the outcome of the in-flight attempt and transitions:
//
//	Attempting(n) → Succeeded              on success or client error
//	Attempting(n) → Backoff(n, now+delay)  on transient failure, budget left
//	Attempting(n) → Queued                 on exhaustion when canQueue
//	Attempting(n) → Failed                 on exhaustion otherwise
//
// canQueue reports whether the request may fall back to the durable
// queue (a write, with the device offline). Observe panics outside
// Attempting (programming error).
func (m *Machine) Observe(outcome Outcome, now time.Time, canQueue bool) State {
	if m.state.Kind != StateAttempting {
		panic(fmt.Sprintf("retry: Observe in state %s", m.state.Kind))
	}

	d := m.policy.Decide(outcome, m.state.Attempt)
	switch d.Verdict {
	case VerdictSucceed:
		m.state = State{Kind: StateSucceeded}
	case VerdictRetryAfter:
		m.state = State{Kind: StateBackoff, Attempt: m.state.Attempt, Until: now.Add(d.Delay)}
	case VerdictExhausted:
		if canQueue {
			m.state = State{Kind: StateQueued}
		} else {
			m.state = State{Kind: StateFailed}
		}
	}
	return m.state
}

// Advance moves Backoff(n, until) to Attempting(n+1) once the delay has
// been served. Advance panics outside Backoff (programming error).
func (m *Machine) Advance() State {
	if m.state.Kind != StateBackoff {
		panic(fmt.Sprintf("retry: Advance in state %s", m.state.Kind))
	}
	m.state = State{Kind: StateAttempting, Attempt: m.state.Attempt + 1}
	return m.state
}
