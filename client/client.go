// Package client composes the delivery pipeline into a single HTTP
// client with automatic retries and a durable offline queue.
//
// Usage:
//
//	c, err := client.New(file.New("/var/lib/app/queue.json"))
//	if err != nil { ... }
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Stop()
//
//	resp, err := c.Post(ctx, "https://api.example.com/orders", body)
//	if resp.Queued {
//	    // Offline: the request is persisted and replays on reconnect.
//	}
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"log/slog"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/backoff"
	"github.com/KBH222/reliq/connectivity"
	"github.com/KBH222/reliq/drain"
	"github.com/KBH222/reliq/executor"
	"github.com/KBH222/reliq/queue"
	"github.com/KBH222/reliq/retry"
)

// Client is a reliable HTTP delivery client. Write requests that fail
// while offline are persisted and replayed once connectivity returns.
type Client struct {
	cfg     reliq.Config
	logger  *slog.Logger
	monitor connectivity.Monitor
	probe   *connectivity.Probe

	queue    *queue.Queue
	executor *executor.Executor
	drainer  *drain.Drainer

	started atomic.Bool
	stopped atomic.Bool
}

// New builds a Client on top of the given store. The store holds the
// offline queue snapshot and must outlive the client.
func New(store queue.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, reliq.ErrNoStore
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	monitor := o.monitor
	var probe *connectivity.Probe
	if monitor == nil {
		if o.check != nil {
			probe = connectivity.NewProbe(o.check, o.cfg.ProbeInterval,
				connectivity.WithLogger(o.logger))
			monitor = probe
		} else {
			monitor = connectivity.NewManual(true)
		}
	}

	queueOpts := []queue.Option{
		queue.WithLogger(o.logger),
		queue.WithMaxRetries(o.cfg.MaxRetries),
		queue.WithStorageKey(o.cfg.StorageKey),
	}
	if o.codec != nil {
		queueOpts = append(queueOpts, queue.WithCodec(o.codec))
	}
	if o.dropHandler != nil {
		queueOpts = append(queueOpts, queue.WithDropHandler(o.dropHandler))
	}
	q, err := queue.New(store, queueOpts...)
	if err != nil {
		return nil, fmt.Errorf("client: build queue: %w", err)
	}

	strategy := o.backoff
	if strategy == nil {
		strategy = backoff.NewExponential(o.cfg.BaseDelay, o.cfg.MaxDelay)
	}
	policy := &retry.Policy{MaxRetries: o.cfg.MaxRetries, Backoff: strategy}

	execOpts := []executor.Option{executor.WithLogger(o.logger)}
	if o.httpClient != nil {
		execOpts = append(execOpts, executor.WithHTTPClient(o.httpClient))
	}
	if len(o.middleware) > 0 {
		execOpts = append(execOpts, executor.WithMiddleware(o.middleware...))
	}
	exec := executor.New(monitor, q, policy, execOpts...)

	drainOpts := []drain.Option{
		drain.WithLogger(o.logger),
		drain.WithStartupDelay(o.cfg.DrainStartupDelay),
		drain.WithInterval(o.cfg.DrainInterval),
	}
	if o.cfg.DrainRate > 0 {
		drainOpts = append(drainOpts, drain.WithRateLimit(o.cfg.DrainRate, o.cfg.DrainBurst))
	}

	return &Client{
		cfg:      o.cfg,
		logger:   o.logger,
		monitor:  monitor,
		probe:    probe,
		queue:    q,
		executor: exec,
		drainer:  drain.New(q, monitor, exec.DeliverRecord, drainOpts...),
	}, nil
}

// Start loads the persisted queue and launches the background drain
// loop (and the connectivity probe, if the client owns one). The
// context bounds the background loops, not Start itself.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return reliq.ErrAlreadyStarted
	}

	if err := c.queue.Load(ctx); err != nil {
		c.started.Store(false)
		return fmt.Errorf("client: load queue: %w", err)
	}
	if c.probe != nil {
		if err := c.probe.Start(ctx); err != nil {
			c.started.Store(false)
			return err
		}
	}
	if err := c.drainer.Start(ctx); err != nil {
		c.started.Store(false)
		return err
	}

	n, _ := c.queue.Len(ctx)
	c.logger.Info("client started", slog.Int("queued", n))
	return nil
}

// Stop halts the drain loop and the connectivity probe. Queued
// requests stay persisted and replay on the next Start.
func (c *Client) Stop() {
	if !c.started.Load() || !c.stopped.CompareAndSwap(false, true) {
		return
	}
	c.drainer.Stop()
	if c.probe != nil {
		c.probe.Stop()
	}
	c.logger.Info("client stopped")
}

// Do sends a request through the retry pipeline. Write requests that
// cannot reach the server while offline return a queued pseudo-success
// (resp.Queued == true) and replay later.
func (c *Client) Do(ctx context.Context, req *reliq.Request) (*reliq.Response, error) {
	if c.stopped.Load() {
		return nil, reliq.ErrClosed
	}
	return c.executor.Execute(ctx, req)
}

// Get issues a GET request. Reads are never queued; offline reads fail
// immediately.
func (c *Client) Get(ctx context.Context, url string) (*reliq.Response, error) {
	return c.Do(ctx, reliq.NewRequest(http.MethodGet, url, nil))
}

// Post issues a POST request with the given body.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*reliq.Response, error) {
	return c.Do(ctx, reliq.NewRequest(http.MethodPost, url, body))
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url string, body []byte) (*reliq.Response, error) {
	return c.Do(ctx, reliq.NewRequest(http.MethodPut, url, body))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*reliq.Response, error) {
	return c.Do(ctx, reliq.NewRequest(http.MethodDelete, url, nil))
}

// Drain runs one synchronous drain pass, bypassing the background
// loop's schedule. Useful after an explicit reconnect signal.
func (c *Client) Drain(ctx context.Context) (queue.DrainStats, error) {
	return c.queue.DrainOnce(ctx, c.executor.DeliverRecord)
}

// QueueLen reports how many requests are waiting for replay.
func (c *Client) QueueLen(ctx context.Context) (int, error) {
	return c.queue.Len(ctx)
}

// Queue exposes the underlying offline queue for inspection.
func (c *Client) Queue() *queue.Queue {
	return c.queue
}

// Online reports the current connectivity state.
func (c *Client) Online() bool {
	return c.monitor.Online()
}

// SetOnline flips a manually managed connectivity monitor. It is a
// no-op when the client runs its own probe or a custom monitor.
func (c *Client) SetOnline(online bool) {
	if m, ok := c.monitor.(*connectivity.Manual); ok {
		m.Set(online)
	}
}
