package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/KBH222/reliq"
)

// DeliverFunc performs one raw delivery attempt for a queued record,
// using its stored url/method/headers/body verbatim. It must not
// re-enter the queue (no enqueue-on-failure) and must not regenerate
// the idempotency key.
type DeliverFunc func(ctx context.Context, rec *Record) error

// DropHandler is invoked when a record exhausts its retry budget during
// drains and is removed undelivered. Host applications should surface
// this to the user: the data layer has done all it can. The handler
// runs outside the queue's lock, so it may inspect the queue or
// re-enqueue.
type DropHandler func(rec *Record, lastErr error)

// DrainStats summarizes one drain pass.
type DrainStats struct {
	// Delivered records were removed after successful delivery.
	Delivered int
	// Kept records failed but stay queued for the next pass.
	Kept int
	// Dropped records exhausted their budget and were removed.
	Dropped int
}

// Option configures a Queue.
type Option func(*Queue)

// WithCodec sets the snapshot codec. Default is JSON.
func WithCodec(c Codec) Option {
	return func(q *Queue) { q.codec = c }
}

// WithLogger sets the queue's logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithMaxRetries sets the per-record drain retry budget.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// WithStorageKey sets the store key for the queue snapshot.
func WithStorageKey(k string) Option {
	return func(q *Queue) { q.storageKey = k }
}

// WithDropHandler sets the terminal-failure hook.
func WithDropHandler(h DropHandler) Option {
	return func(q *Queue) { q.dropped = h }
}

// Queue is a durable FIFO of pending write requests over a snapshot
// Store. Safe for concurrent use: a mutex serializes every mutation,
// and each mutation persists before the in-memory view changes, so the
// store is never behind what callers have observed.
type Queue struct {
	store      Store
	codec      Codec
	storageKey string
	maxRetries int
	dropped    DropHandler
	logger     *slog.Logger

	mu      sync.Mutex
	records []*Record
	loaded  bool

	// draining guards single-flight drain passes.
	draining atomic.Bool
}

// New creates a Queue over the given store.
func New(store Store, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, reliq.ErrNoStore
	}
	def := reliq.DefaultConfig()
	q := &Queue{
		store:      store,
		codec:      &JSONCodec{},
		storageKey: def.StorageKey,
		maxRetries: def.MaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Load reads the persisted snapshot into the in-memory view. Called
// once at session start; later calls are no-ops. Enqueue and DrainOnce
// load lazily if the caller never did.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ensureLoaded(ctx)
}

// ensureLoaded reads the store snapshot if it hasn't been read yet.
// Caller holds q.mu.
func (q *Queue) ensureLoaded(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	data, err := q.store.Load(ctx, q.storageKey)
	if err != nil {
		return fmt.Errorf("queue: load snapshot: %w", err)
	}
	records, err := q.codec.Decode(data)
	if err != nil {
		return fmt.Errorf("queue: decode snapshot: %w", err)
	}
	q.records = records
	q.loaded = true
	return nil
}

// persist writes the given record list to the store and, on success,
// makes it the in-memory view. Caller holds q.mu.
func (q *Queue) persist(ctx context.Context, records []*Record) error {
	data, err := q.codec.Encode(records)
	if err != nil {
		return fmt.Errorf("queue: encode snapshot: %w", err)
	}
	if err := q.store.Save(ctx, q.storageKey, data); err != nil {
		return fmt.Errorf("queue: save snapshot: %w", err)
	}
	q.records = records
	return nil
}

// Enqueue appends a record to the durable queue. The snapshot write
// completes before Enqueue returns.
func (q *Queue) Enqueue(ctx context.Context, rec *Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make([]*Record, len(q.records), len(q.records)+1)
	copy(next, q.records)
	next = append(next, rec)

	if err := q.persist(ctx, next); err != nil {
		return err
	}

	q.logger.Info("request queued",
		slog.String("record_id", rec.ID),
		slog.String("method", rec.Method),
		slog.String("url", rec.URL),
	)
	return nil
}

// Len returns the number of queued records.
func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return len(q.records), nil
}

// Snapshot returns a copy of the queued records in FIFO order.
func (q *Queue) Snapshot(ctx context.Context) ([]*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]*Record, len(q.records))
	for i, r := range q.records {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

// DrainOnce replays the current snapshot through deliver, strictly in
// insertion order, one attempt per record. Successes are removed;
// failures get their retry count bumped and stay queued, or are dropped
// through the DropHandler once the budget is spent. A failure on one
// record does not block later records. If ctx is cancelled mid-pass
// the remaining records simply stay queued for the next trigger.
//
// Only one pass runs at a time; a concurrent call returns
// reliq.ErrDrainInFlight with zero stats.
func (q *Queue) DrainOnce(ctx context.Context, deliver DeliverFunc) (DrainStats, error) {
	var stats DrainStats

	if !q.draining.CompareAndSwap(false, true) {
		return stats, reliq.ErrDrainInFlight
	}
	defer q.draining.Store(false)

	snapshot, err := q.Snapshot(ctx)
	if err != nil {
		return stats, err
	}

	for _, rec := range snapshot {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		if err := deliver(ctx, rec); err != nil {
			if mutErr := q.recordFailure(ctx, rec.ID, err, &stats); mutErr != nil {
				return stats, mutErr
			}
			continue
		}

		if mutErr := q.remove(ctx, rec.ID); mutErr != nil {
			return stats, mutErr
		}
		stats.Delivered++
		q.logger.Info("queued request delivered",
			slog.String("record_id", rec.ID),
			slog.String("method", rec.Method),
			slog.String("url", rec.URL),
		)
	}

	return stats, nil
}

// recordFailure bumps the retry count for the record and either keeps
// it or drops it once the budget is spent. The DropHandler runs after
// the mutex is released so it may call back into the queue.
func (q *Queue) recordFailure(ctx context.Context, recordID string, deliverErr error, stats *DrainStats) error {
	dropped, err := q.applyFailure(ctx, recordID, deliverErr, stats)
	if err != nil {
		return err
	}

	if dropped != nil {
		q.logger.Error("queued request dropped after retry exhaustion",
			slog.String("record_id", dropped.ID),
			slog.String("method", dropped.Method),
			slog.String("url", dropped.URL),
			slog.Int("retries", dropped.Retries),
			slog.String("error", deliverErr.Error()),
		)
		if q.dropped != nil {
			q.dropped(dropped, deliverErr)
		}
	}
	return nil
}

// applyFailure performs the locked part of recordFailure and returns
// the dropped record, if any, for the caller to report.
func (q *Queue) applyFailure(ctx context.Context, recordID string, deliverErr error, stats *DrainStats) (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, r := range q.records {
		if r.ID == recordID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Removed concurrently; nothing to account for.
		return nil, nil
	}

	rec := *q.records[idx]
	rec.Retries++

	if rec.Retries >= q.maxRetries {
		next := make([]*Record, 0, len(q.records)-1)
		next = append(next, q.records[:idx]...)
		next = append(next, q.records[idx+1:]...)
		if err := q.persist(ctx, next); err != nil {
			return nil, err
		}
		stats.Dropped++
		return &rec, nil
	}

	next := make([]*Record, len(q.records))
	copy(next, q.records)
	next[idx] = &rec
	if err := q.persist(ctx, next); err != nil {
		return nil, err
	}
	stats.Kept++
	q.logger.Warn("queued request delivery failed",
		slog.String("record_id", rec.ID),
		slog.Int("retries", rec.Retries),
		slog.Int("max_retries", q.maxRetries),
		slog.String("error", deliverErr.Error()),
	)
	return nil, nil
}

// remove deletes a record by ID, persisting the shrunk list first.
func (q *Queue) remove(ctx context.Context, recordID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.records {
		if r.ID == recordID {
			next := make([]*Record, 0, len(q.records)-1)
			next = append(next, q.records[:i]...)
			next = append(next, q.records[i+1:]...)
			return q.persist(ctx, next)
		}
	}
	return nil
}
