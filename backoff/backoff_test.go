package backoff_test

import (
	"testing"
	"time"

	"github.com/KBH222/reliq/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 0; attempt < 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},  // 1 * 2^0
		{1, 2 * time.Second},  // 1 * 2^1
		{2, 4 * time.Second},  // 1 * 2^2
		{3, 8 * time.Second},  // 1 * 2^3
		{4, 16 * time.Second}, // 1 * 2^4
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	// Attempt 4 = 16s > 10s max → should return 10s.
	if got := e.Delay(4); got != 10*time.Second {
		t.Errorf("Delay(4) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
	if got := e.Delay(20); got != 10*time.Second {
		t.Errorf("Delay(20) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponential_HugeAttemptSaturatesAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 30*time.Second)

	// 2^attempt overflows float64 well before attempt 2000; the result
	// must hold at Max, never wrap negative or return instantly.
	for _, attempt := range []int{63, 100, 1024, 1 << 20} {
		if got := e.Delay(attempt); got != 30*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 30*time.Second)
		}
	}

	// Uncapped: saturate at the largest representable delay.
	uncapped := backoff.NewExponential(time.Second, 0)
	if got := uncapped.Delay(1 << 20); got <= 0 {
		t.Errorf("uncapped Delay(1<<20) = %v, want a positive saturated delay", got)
	}
}

func TestExponentialWithJitter_HugeAttemptStaysBounded(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)
	for range 100 {
		got := e.Delay(1 << 20)
		if got < 0 || got > 10*time.Second {
			t.Errorf("Delay(1<<20) = %v, want within [0, 10s]", got)
		}
	}
}

func TestExponential_NegativeAttemptClamped(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Minute)
	if got := e.Delay(-3); got != time.Second {
		t.Errorf("Delay(-3) = %v, want %v", got, time.Second)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)

	for attempt := 0; attempt < 5; attempt++ {
		maxDelay := 10 * time.Second // capped at Max

		for range 100 {
			got := e.Delay(attempt)
			if got < 0 {
				t.Errorf("Delay(%d) = %v, should be >= 0", attempt, got)
			}
			if got > maxDelay {
				t.Errorf("Delay(%d) = %v, should be <= %v", attempt, got, maxDelay)
			}
		}
	}
}

func TestDefaultStrategy_IsPredictable(t *testing.T) {
	s := backoff.DefaultStrategy()
	// The default must not jitter: repeated calls return the same value.
	first := s.Delay(2)
	for range 10 {
		if got := s.Delay(2); got != first {
			t.Fatalf("DefaultStrategy Delay(2) varied: %v vs %v", got, first)
		}
	}
	if first != 4*time.Second {
		t.Errorf("DefaultStrategy Delay(2) = %v, want %v", first, 4*time.Second)
	}
}
