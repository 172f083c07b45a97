package client

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/backoff"
	"github.com/KBH222/reliq/connectivity"
	"github.com/KBH222/reliq/middleware"
	"github.com/KBH222/reliq/queue"
)

type options struct {
	cfg         reliq.Config
	logger      *slog.Logger
	monitor     connectivity.Monitor
	check       connectivity.CheckFunc
	httpClient  *http.Client
	backoff     backoff.Strategy
	middleware  []middleware.Middleware
	codec       queue.Codec
	dropHandler queue.DropHandler
}

func defaultOptions() *options {
	return &options{
		cfg:    reliq.DefaultConfig(),
		logger: slog.Default(),
	}
}

// Option configures a Client.
type Option func(*options)

// WithConfig replaces the full configuration. Later options override
// individual fields.
func WithConfig(cfg reliq.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMonitor sets a custom connectivity monitor. The caller owns its
// lifecycle; Start and Stop leave it alone.
func WithMonitor(m connectivity.Monitor) Option {
	return func(o *options) { o.monitor = m }
}

// WithProbe makes the client run its own connectivity probe using the
// given reachability check. Ignored when WithMonitor is also set.
func WithProbe(check connectivity.CheckFunc) Option {
	return func(o *options) { o.check = check }
}

// WithHTTPClient sets the underlying HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBackoff sets the retry backoff strategy. Defaults to exponential
// doubling from Config.BaseDelay capped at Config.MaxDelay.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) { o.backoff = s }
}

// WithMaxRetries sets the retry budget for both the in-flight loop and
// queue drains.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.cfg.MaxRetries = n }
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(o *options) { o.cfg.BaseDelay = d }
}

// WithMiddleware appends middleware around every delivery attempt.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithCodec sets the queue snapshot codec. Defaults to JSON.
func WithCodec(c queue.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithStorageKey sets the store key for the queue snapshot.
func WithStorageKey(key string) Option {
	return func(o *options) { o.cfg.StorageKey = key }
}

// WithDropHandler sets the hook invoked when a queued request exhausts
// its drain retries and is dropped.
func WithDropHandler(h queue.DropHandler) Option {
	return func(o *options) { o.dropHandler = h }
}

// WithDrainInterval sets the periodic drain cadence. Zero disables the
// timer; drains then fire only on reconnect and at startup.
func WithDrainInterval(d time.Duration) Option {
	return func(o *options) { o.cfg.DrainInterval = d }
}

// WithDrainStartupDelay sets how long after Start the first drain pass
// runs.
func WithDrainStartupDelay(d time.Duration) Option {
	return func(o *options) { o.cfg.DrainStartupDelay = d }
}

// WithDrainRate caps sustained deliveries per second during drains.
func WithDrainRate(perSecond float64, burst int) Option {
	return func(o *options) {
		o.cfg.DrainRate = perSecond
		o.cfg.DrainBurst = burst
	}
}
