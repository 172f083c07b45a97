// Package drain triggers replay of the durable offline queue. A
// Drainer runs one pass per trigger: the offline→online edge, a short
// delay after Start (picking up a queue built before this session),
// and an optional periodic tick. Each pass makes a single delivery
// attempt per record; records that fail wait for the next trigger,
// which naturally yields outer-loop backoff.
package drain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/connectivity"
	"github.com/KBH222/reliq/queue"
)

// Option configures a Drainer.
type Option func(*Drainer)

// WithLogger sets the drainer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Drainer) { d.logger = l }
}

// WithStartupDelay sets how long after Start the first pass runs.
func WithStartupDelay(delay time.Duration) Option {
	return func(d *Drainer) { d.startupDelay = delay }
}

// WithInterval sets the periodic tick. Zero disables it; passes then
// run only on transitions and the startup delay.
func WithInterval(interval time.Duration) Option {
	return func(d *Drainer) { d.interval = interval }
}

// WithRateLimit paces deliveries within a pass, so a reconnect does
// not hammer the server with the whole backlog at once. r is sustained
// deliveries per second; burst defaults to 1 if not positive.
func WithRateLimit(r float64, burst int) Option {
	return func(d *Drainer) {
		if r <= 0 {
			d.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// Drainer owns the drain schedule for one queue. It is a singleton by
// convention: construct one per Client. Passes never overlap — the
// queue enforces single-flight and the loop here is sequential anyway.
type Drainer struct {
	queue   *queue.Queue
	monitor connectivity.Monitor
	deliver queue.DeliverFunc
	logger  *slog.Logger

	startupDelay time.Duration
	interval     time.Duration
	limiter      *rate.Limiter

	// trigger coalesces drain requests; one buffered slot is enough
	// because a pass re-reads the queue snapshot when it runs.
	trigger     chan struct{}
	unsubscribe func()
	stopOnce    sync.Once
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New creates a Drainer that replays q through deliver.
func New(q *queue.Queue, monitor connectivity.Monitor, deliver queue.DeliverFunc, opts ...Option) *Drainer {
	def := reliq.DefaultConfig()
	d := &Drainer{
		queue:        q,
		monitor:      monitor,
		deliver:      deliver,
		logger:       slog.Default(),
		startupDelay: def.DrainStartupDelay,
		interval:     def.DrainInterval,
		trigger:      make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start subscribes to the online edge and launches the drain loop.
func (d *Drainer) Start(ctx context.Context) error {
	d.unsubscribe = d.monitor.Subscribe(connectivity.Online, d.Poke)
	d.wg.Add(1)
	go d.loop(ctx)
	d.logger.Info("drainer started",
		slog.Duration("startup_delay", d.startupDelay),
		slog.Duration("interval", d.interval),
	)
	return nil
}

// Stop unsubscribes and waits for the loop to exit. In-flight passes
// finish their current record; the rest of the queue stays persisted.
func (d *Drainer) Stop() {
	d.stopOnce.Do(func() {
		if d.unsubscribe != nil {
			d.unsubscribe()
		}
		close(d.stopCh)
	})
	d.wg.Wait()
}

// Poke requests a drain pass. Multiple pokes before the loop wakes up
// coalesce into one pass.
func (d *Drainer) Poke() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

func (d *Drainer) loop(ctx context.Context) {
	defer d.wg.Done()

	startup := time.NewTimer(d.startupDelay)
	defer startup.Stop()

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		case <-startup.C:
			d.pass(ctx)
		case <-d.trigger:
			d.pass(ctx)
		case <-tick:
			d.pass(ctx)
		}
	}
}

// pass runs one drain pass if the device is online.
func (d *Drainer) pass(ctx context.Context) {
	if !d.monitor.Online() {
		return
	}

	deliver := d.deliver
	if d.limiter != nil {
		limiter := d.limiter
		inner := d.deliver
		deliver = func(ctx context.Context, rec *queue.Record) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return inner(ctx, rec)
		}
	}

	stats, err := d.queue.DrainOnce(ctx, deliver)
	switch {
	case errors.Is(err, reliq.ErrDrainInFlight):
		return
	case err != nil:
		d.logger.Warn("drain pass interrupted",
			slog.Int("delivered", stats.Delivered),
			slog.Int("kept", stats.Kept),
			slog.Int("dropped", stats.Dropped),
			slog.String("error", err.Error()),
		)
		return
	}

	if stats.Delivered+stats.Kept+stats.Dropped > 0 {
		d.logger.Info("drain pass complete",
			slog.Int("delivered", stats.Delivered),
			slog.Int("kept", stats.Kept),
			slog.Int("dropped", stats.Dropped),
		)
	}
}
