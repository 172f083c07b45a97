package reliq

import "time"

// Config holds configuration for reliable delivery.
type Config struct {
	// MaxRetries is the maximum number of retry attempts after the
	// initial failure, for both the in-flight loop and queue drains.
	MaxRetries int

	// BaseDelay is the backoff delay before the first retry. Each
	// subsequent retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Zero means no cap.
	MaxDelay time.Duration

	// StorageKey is the store key under which the offline queue
	// snapshot is persisted.
	StorageKey string

	// DrainStartupDelay is how long after Start the first drain pass
	// runs, picking up requests queued by a previous session.
	DrainStartupDelay time.Duration

	// DrainInterval is how often a periodic drain pass runs while
	// online. Zero disables the timer; drains then fire only on
	// offline→online transitions.
	DrainInterval time.Duration

	// DrainRate is the maximum sustained deliveries per second during
	// a drain pass. Zero disables rate limiting.
	DrainRate float64

	// DrainBurst is the burst size for the drain rate limiter.
	// Defaults to 1 if DrainRate is set but DrainBurst is zero.
	DrainBurst int

	// ProbeInterval is how often the probe connectivity monitor checks
	// reachability.
	ProbeInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
		StorageKey:        "reliq:queue",
		DrainStartupDelay: 2 * time.Second,
		DrainInterval:     30 * time.Second,
		ProbeInterval:     10 * time.Second,
	}
}
