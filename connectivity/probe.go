package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// CheckFunc reports whether the network is reachable right now.
type CheckFunc func(ctx context.Context) bool

// NewHTTPCheck returns a CheckFunc that issues a HEAD request against
// url. Any response, including an error status, counts as reachable;
// only a transport failure counts as offline. A nil client uses
// http.DefaultClient.
func NewHTTPCheck(client *http.Client, url string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithLogger sets the probe's logger.
func WithLogger(l *slog.Logger) ProbeOption {
	return func(p *Probe) { p.logger = l }
}

// WithCheckTimeout bounds each individual reachability check.
func WithCheckTimeout(d time.Duration) ProbeOption {
	return func(p *Probe) { p.checkTimeout = d }
}

// Probe is a Monitor that discovers reachability itself by running a
// CheckFunc on a tick loop, feeding the edges through an embedded
// Manual core. Used when the host has no platform connectivity signal
// to forward.
type Probe struct {
	*Manual

	check        CheckFunc
	interval     time.Duration
	checkTimeout time.Duration
	logger       *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

var _ Monitor = (*Probe)(nil)

// NewProbe creates a Probe that runs check every interval. Start runs
// one synchronous check, so the state is accurate from the first
// moment rather than assumed online until a tick fires.
func NewProbe(check CheckFunc, interval time.Duration, opts ...ProbeOption) *Probe {
	p := &Probe{
		Manual:       NewManual(true),
		check:        check,
		interval:     interval,
		checkTimeout: 5 * time.Second,
		logger:       slog.Default(),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start checks reachability once, then launches the tick loop.
func (p *Probe) Start(ctx context.Context) error {
	p.tick(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
	p.logger.Info("connectivity probe started",
		slog.Duration("interval", p.interval),
	)
	return nil
}

// Stop terminates the tick loop and waits for it to exit.
func (p *Probe) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Probe) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Probe) tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	online := p.check(cctx)
	cancel()

	if online != p.Online() {
		p.logger.Info("connectivity changed",
			slog.Bool("online", online),
		)
	}
	p.Set(online)
}
