package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/KBH222/reliq/backoff"
	"github.com/KBH222/reliq/retry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   retry.Outcome
	}{
		{"200 OK", 200, nil, retry.OutcomeSuccess},
		{"201 Created", 201, nil, retry.OutcomeSuccess},
		{"204 No Content", 204, nil, retry.OutcomeSuccess},
		{"304 Not Modified", 304, nil, retry.OutcomeSuccess},
		{"400 Bad Request", 400, nil, retry.OutcomeClientError},
		{"404 Not Found", 404, nil, retry.OutcomeClientError},
		{"422 Unprocessable", 422, nil, retry.OutcomeClientError},
		{"500 Internal", 500, nil, retry.OutcomeServerError},
		{"503 Unavailable", 503, nil, retry.OutcomeServerError},
		{"network error", 0, errors.New("dial tcp: connection refused"), retry.OutcomeNetworkError},
		{"error wins over status", 502, errors.New("timeout"), retry.OutcomeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.Classify(tt.status, tt.err); got != tt.want {
				t.Errorf("Classify(%d, %v) = %v, want %v", tt.status, tt.err, got, tt.want)
			}
		})
	}
}

func TestPolicy_Decide_TerminalOutcomes(t *testing.T) {
	p := retry.NewPolicy(3, backoff.NewExponential(time.Second, time.Minute))

	for _, outcome := range []retry.Outcome{retry.OutcomeSuccess, retry.OutcomeClientError} {
		for attempt := 0; attempt < 5; attempt++ {
			d := p.Decide(outcome, attempt)
			if d.Verdict != retry.VerdictSucceed {
				t.Errorf("Decide(%v, %d) = %v, want VerdictSucceed", outcome, attempt, d.Verdict)
			}
		}
	}
}

func TestPolicy_Decide_TransientRetriesWithBackoff(t *testing.T) {
	p := retry.NewPolicy(3, backoff.NewExponential(time.Second, time.Minute))

	tests := []struct {
		attempt   int
		wantDelay time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}
	for _, tt := range tests {
		d := p.Decide(retry.OutcomeServerError, tt.attempt)
		if d.Verdict != retry.VerdictRetryAfter {
			t.Fatalf("Decide(server_error, %d) = %v, want VerdictRetryAfter", tt.attempt, d.Verdict)
		}
		if d.Delay != tt.wantDelay {
			t.Errorf("Decide(server_error, %d) delay = %v, want %v", tt.attempt, d.Delay, tt.wantDelay)
		}
	}
}

func TestPolicy_Decide_Exhausted(t *testing.T) {
	p := retry.NewPolicy(3, backoff.NewExponential(time.Second, time.Minute))

	for _, outcome := range []retry.Outcome{retry.OutcomeServerError, retry.OutcomeNetworkError} {
		d := p.Decide(outcome, 3)
		if d.Verdict != retry.VerdictExhausted {
			t.Errorf("Decide(%v, 3) = %v, want VerdictExhausted", outcome, d.Verdict)
		}
	}
}

func TestPolicy_Decide_ZeroRetries(t *testing.T) {
	p := retry.NewPolicy(0, backoff.NewExponential(time.Second, time.Minute))

	d := p.Decide(retry.OutcomeNetworkError, 0)
	if d.Verdict != retry.VerdictExhausted {
		t.Errorf("Decide(network_error, 0) = %v, want VerdictExhausted with MaxRetries=0", d.Verdict)
	}
}

func TestNewPolicy_NilStrategyFallsBack(t *testing.T) {
	p := retry.NewPolicy(3, nil)
	d := p.Decide(retry.OutcomeServerError, 0)
	if d.Verdict != retry.VerdictRetryAfter {
		t.Fatalf("Decide = %v, want VerdictRetryAfter", d.Verdict)
	}
	if d.Delay <= 0 {
		t.Errorf("delay = %v, want > 0 from default strategy", d.Delay)
	}
}
