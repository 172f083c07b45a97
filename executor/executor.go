// Package executor orchestrates delivery of a single logical request:
// idempotency tagging, the offline fast path to the durable queue, the
// in-flight retry loop with exponential backoff, and the
// exhaustion-while-offline fallback.
//
// All outcome classification happens here and in the retry package.
// Callers only ever see a resolved *reliq.Response or an error; raw
// transport exceptions never escape.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/connectivity"
	"github.com/KBH222/reliq/key"
	"github.com/KBH222/reliq/middleware"
	"github.com/KBH222/reliq/queue"
	"github.com/KBH222/reliq/retry"
)

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient sets the transport. Default is http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.httpClient = c }
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMiddleware sets the middleware chain applied around every
// delivery attempt, in-flight and drained alike.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Executor) { e.mw = middleware.Chain(mws...) }
}

// Executor runs logical requests to completion. Safe for concurrent
// use; each Execute call owns its own retry state.
type Executor struct {
	httpClient *http.Client
	monitor    connectivity.Monitor
	queue      *queue.Queue
	policy     *retry.Policy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// New creates an Executor.
func New(monitor connectivity.Monitor, q *queue.Queue, policy *retry.Policy, opts ...Option) *Executor {
	e := &Executor{
		httpClient: http.DefaultClient,
		monitor:    monitor,
		queue:      q,
		policy:     policy,
		mw:         middleware.Chain(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a logical request to a terminal state.
//
// Writes get a fresh idempotency key unless the caller opted out or
// supplied one. A write issued while offline queues immediately and
// returns a queued pseudo-success without touching the network. Online
// (or for reads), the retry loop runs: transient failures back off
// exponentially and retry with the identical key; exhaustion while
// offline queues writes as a last resort, otherwise the failure
// surfaces as ErrExhausted. Client errors resolve as responses: the
// caller must inspect the status.
func (e *Executor) Execute(ctx context.Context, req *reliq.Request) (*reliq.Response, error) {
	if req.URL == "" {
		return nil, reliq.ErrEmptyURL
	}
	if !reliq.ValidMethod(req.Method) {
		return nil, fmt.Errorf("%w: %q", reliq.ErrInvalidMethod, req.Method)
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	isWrite := reliq.IsWrite(req.Method)
	if isWrite && !req.SkipIdempotency && req.Header.Get(reliq.IdempotencyHeader) == "" {
		req.Header.Set(reliq.IdempotencyHeader, key.New())
	}

	// Offline fast path: a write queues durably, no network attempt.
	// Reads fall through to the loop and fail per normal flow.
	if isWrite && !e.monitor.Online() {
		return e.enqueue(ctx, req)
	}

	m := retry.NewMachine(e.policy)
	for {
		resp, attemptErr := e.attempt(ctx, req)

		var status int
		if resp != nil {
			status = resp.Status
		}
		outcome := retry.Classify(status, attemptErr)
		canQueue := isWrite && !e.monitor.Online()
		state := m.Observe(outcome, time.Now(), canQueue)

		switch state.Kind {
		case retry.StateSucceeded:
			return resp, nil

		case retry.StateQueued:
			e.logger.Info("retries exhausted offline, queuing",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
			)
			return e.enqueue(ctx, req)

		case retry.StateFailed:
			if attemptErr != nil {
				return nil, fmt.Errorf("%w: %v", reliq.ErrExhausted, attemptErr)
			}
			return nil, fmt.Errorf("%w: last status %d", reliq.ErrExhausted, status)

		case retry.StateBackoff:
			e.logger.Debug("attempt failed, backing off",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.String("outcome", outcome.String()),
				slog.Int("attempt", state.Attempt),
				slog.Time("until", state.Until),
			)
			// Cooperative delay: only this logical request waits.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Until(state.Until)):
			}
			m.Advance()
		}
	}
}

// DeliverRecord attempts a queued record once, through the middleware
// chain, using its stored url/method/headers/body verbatim. No key
// regeneration, no retry sub-loop: the drainer's outer passes provide
// the backoff. A client-error status counts as delivered — resending
// an identical payload cannot fix it, so the record must not stay
// queued.
func (e *Executor) DeliverRecord(ctx context.Context, rec *queue.Record) error {
	req := &reliq.Request{
		URL:             rec.URL,
		Method:          rec.Method,
		Header:          rec.Header,
		Body:            rec.Body,
		SkipIdempotency: true,
	}

	resp, err := e.mw(ctx, req, func(ctx context.Context) (*reliq.Response, error) {
		return Deliver(ctx, e.httpClient, rec.URL, rec.Method, rec.Header, rec.Body)
	})

	var status int
	if resp != nil {
		status = resp.Status
	}
	outcome := retry.Classify(status, err)
	if !outcome.Transient() {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("executor: deliver %s %s: status %d", rec.Method, rec.URL, status)
}

// attempt performs one network attempt through the middleware chain.
func (e *Executor) attempt(ctx context.Context, req *reliq.Request) (*reliq.Response, error) {
	return e.mw(ctx, req, func(ctx context.Context) (*reliq.Response, error) {
		return Deliver(ctx, e.httpClient, req.URL, req.Method, req.Header, req.Body)
	})
}

// enqueue hands the request to the durable queue and resolves with the
// queued pseudo-success so UIs can proceed optimistically.
func (e *Executor) enqueue(ctx context.Context, req *reliq.Request) (*reliq.Response, error) {
	rec := queue.NewRecord(req, time.Now().UTC())
	if err := e.queue.Enqueue(ctx, rec); err != nil {
		return nil, err
	}
	return reliq.NewQueuedResponse(), nil
}

// Deliver performs a single raw HTTP attempt with the given components
// verbatim. It is the shared delivery primitive: Execute's retry loop
// wraps it with policy, and drain passes replay queued records through
// it without ever re-entering the queuing path.
func Deliver(ctx context.Context, client *http.Client, url, method string, header http.Header, body []byte) (*reliq.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("executor: build request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			hreq.Header.Add(name, v)
		}
	}

	hresp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = hresp.Body.Close() }()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, err
	}

	return &reliq.Response{
		Status: hresp.StatusCode,
		Header: hresp.Header,
		Body:   respBody,
	}, nil
}
