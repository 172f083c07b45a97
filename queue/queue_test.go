package queue_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/queue"
	"github.com/KBH222/reliq/store/memory"
)

func newTestRecord(url string) *queue.Record {
	req := reliq.NewRequest(http.MethodPost, url, []byte(`{"name":"alice"}`))
	req.Header.Set(reliq.IdempotencyHeader, "req_test_"+url)
	req.Header.Set("Content-Type", "application/json")
	return queue.NewRecord(req, time.Now().UTC())
}

func newTestQueue(t *testing.T, store queue.Store, opts ...queue.Option) *queue.Queue {
	t.Helper()
	q, err := queue.New(store, opts...)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	return q
}

func TestNew_NilStore(t *testing.T) {
	if _, err := queue.New(nil); !errors.Is(err, reliq.ErrNoStore) {
		t.Errorf("New(nil) = %v, want ErrNoStore", err)
	}
}

func TestEnqueue_PersistsImmediately(t *testing.T) {
	s := memory.New()
	q := newTestQueue(t, s)
	ctx := context.Background()

	if err := q.Enqueue(ctx, newTestRecord("/api/customers")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The store must hold the record before Enqueue returned.
	data, err := s.Load(ctx, reliq.DefaultConfig().StorageKey)
	if err != nil {
		t.Fatalf("store Load: %v", err)
	}
	records, err := (&queue.JSONCodec{}).Decode(data)
	if err != nil {
		t.Fatalf("decode persisted snapshot: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(records))
	}
	if records[0].URL != "/api/customers" {
		t.Errorf("persisted URL = %q, want /api/customers", records[0].URL)
	}
}

func TestQueue_SurvivesReload(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	rec := newTestRecord("/api/jobs")
	if err := newTestQueue(t, s).Enqueue(ctx, rec); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Fresh queue over the same store, as after a process restart.
	reloaded := newTestQueue(t, s)
	records, err := reloaded.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("reloaded %d records, want 1", len(records))
	}

	got := records[0]
	if got.URL != rec.URL || got.Method != rec.Method {
		t.Errorf("reloaded record = %s %s, want %s %s", got.Method, got.URL, rec.Method, rec.URL)
	}
	if string(got.Body) != string(rec.Body) {
		t.Errorf("reloaded body = %q, want %q", got.Body, rec.Body)
	}
	if got.Key() != rec.Key() {
		t.Errorf("reloaded idempotency key = %q, want %q", got.Key(), rec.Key())
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("reloaded Content-Type = %q", got.Header.Get("Content-Type"))
	}
}

func TestDrainOnce_FIFOAndPruning(t *testing.T) {
	q := newTestQueue(t, memory.New())
	ctx := context.Background()

	urls := []string{"/first", "/second", "/third"}
	for _, u := range urls {
		if err := q.Enqueue(ctx, newTestRecord(u)); err != nil {
			t.Fatalf("Enqueue(%s): %v", u, err)
		}
	}

	var delivered []string
	stats, err := q.DrainOnce(ctx, func(_ context.Context, rec *queue.Record) error {
		delivered = append(delivered, rec.URL)
		return nil
	})
	if err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}

	if stats.Delivered != 3 || stats.Kept != 0 || stats.Dropped != 0 {
		t.Errorf("stats = %+v, want 3 delivered", stats)
	}
	for i, u := range urls {
		if delivered[i] != u {
			t.Fatalf("delivery order %v, want %v", delivered, urls)
		}
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("queue has %d records after full drain, want 0", n)
	}
}

func TestDrainOnce_PartialFailure(t *testing.T) {
	q := newTestQueue(t, memory.New())
	ctx := context.Background()

	for _, u := range []string{"/first", "/second", "/third"} {
		if err := q.Enqueue(ctx, newTestRecord(u)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	stats, err := q.DrainOnce(ctx, func(_ context.Context, rec *queue.Record) error {
		if rec.URL == "/second" {
			return errors.New("503 from server")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if stats.Delivered != 2 || stats.Kept != 1 || stats.Dropped != 0 {
		t.Errorf("stats = %+v, want 2 delivered / 1 kept", stats)
	}

	// The failed record stays queued with its retry count bumped; the
	// failure did not block delivery of the third record.
	records, err := q.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("queue has %d records, want 1", len(records))
	}
	if records[0].URL != "/second" {
		t.Errorf("remaining record = %q, want /second", records[0].URL)
	}
	if records[0].Retries != 1 {
		t.Errorf("remaining record retries = %d, want 1", records[0].Retries)
	}
}

func TestDrainOnce_DropsAtMaxRetries(t *testing.T) {
	var droppedRec *queue.Record
	var droppedErr error

	q := newTestQueue(t, memory.New(),
		queue.WithMaxRetries(2),
		queue.WithDropHandler(func(rec *queue.Record, err error) {
			droppedRec = rec
			droppedErr = err
		}),
	)
	ctx := context.Background()

	if err := q.Enqueue(ctx, newTestRecord("/doomed")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deliverErr := errors.New("connection refused")
	fail := func(_ context.Context, _ *queue.Record) error { return deliverErr }

	// First failed pass: kept with retries=1.
	stats, err := q.DrainOnce(ctx, fail)
	if err != nil {
		t.Fatalf("DrainOnce 1: %v", err)
	}
	if stats.Kept != 1 || stats.Dropped != 0 {
		t.Fatalf("pass 1 stats = %+v, want 1 kept", stats)
	}
	if droppedRec != nil {
		t.Fatal("drop handler fired before budget exhausted")
	}

	// Second failed pass hits the budget: dropped, handler notified.
	stats, err = q.DrainOnce(ctx, fail)
	if err != nil {
		t.Fatalf("DrainOnce 2: %v", err)
	}
	if stats.Dropped != 1 {
		t.Fatalf("pass 2 stats = %+v, want 1 dropped", stats)
	}
	if droppedRec == nil {
		t.Fatal("drop handler never fired")
	}
	if droppedRec.URL != "/doomed" || droppedRec.Retries != 2 {
		t.Errorf("dropped record = %q retries=%d, want /doomed retries=2", droppedRec.URL, droppedRec.Retries)
	}
	if !errors.Is(droppedErr, deliverErr) {
		t.Errorf("drop handler error = %v, want %v", droppedErr, deliverErr)
	}

	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("queue has %d records after drop, want 0", n)
	}
}

func TestDropHandler_MayCallBackIntoQueue(t *testing.T) {
	var handlerLen int
	var q *queue.Queue
	q = newTestQueue(t, memory.New(),
		queue.WithMaxRetries(1),
		queue.WithDropHandler(func(rec *queue.Record, err error) {
			// A host app reacting to data loss will read queue state
			// or re-submit; neither may block the drain pass.
			handlerLen, _ = q.Len(context.Background())
			if err := q.Enqueue(context.Background(), newTestRecord("/resubmitted")); err != nil {
				t.Errorf("Enqueue from drop handler: %v", err)
			}
		}),
	)
	ctx := context.Background()

	if err := q.Enqueue(ctx, newTestRecord("/doomed")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	fail := func(_ context.Context, _ *queue.Record) error { return errors.New("connection refused") }

	done := make(chan queue.DrainStats, 1)
	go func() {
		stats, err := q.DrainOnce(ctx, fail)
		if err != nil {
			t.Errorf("DrainOnce: %v", err)
		}
		done <- stats
	}()

	var stats queue.DrainStats
	select {
	case stats = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("DrainOnce blocked with a drop handler that touches the queue")
	}

	if stats.Dropped != 1 {
		t.Fatalf("stats = %+v, want 1 dropped", stats)
	}
	if handlerLen != 0 {
		t.Errorf("handler observed Len = %d, want 0 (record already dropped)", handlerLen)
	}
	if n, _ := q.Len(ctx); n != 1 {
		t.Errorf("queue has %d records, want the 1 re-enqueued from the handler", n)
	}
}

func TestDrainOnce_SingleFlight(t *testing.T) {
	q := newTestQueue(t, memory.New())
	ctx := context.Background()

	if err := q.Enqueue(ctx, newTestRecord("/slow")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	inDeliver := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := q.DrainOnce(ctx, func(_ context.Context, _ *queue.Record) error {
			close(inDeliver)
			<-release
			return nil
		})
		done <- err
	}()

	<-inDeliver
	if _, err := q.DrainOnce(ctx, func(_ context.Context, _ *queue.Record) error { return nil }); !errors.Is(err, reliq.ErrDrainInFlight) {
		t.Errorf("concurrent DrainOnce = %v, want ErrDrainInFlight", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first DrainOnce: %v", err)
	}
}

func TestDrainOnce_CancelledContextKeepsRemainder(t *testing.T) {
	q := newTestQueue(t, memory.New())
	ctx, cancel := context.WithCancel(context.Background())

	for _, u := range []string{"/first", "/second", "/third"} {
		if err := q.Enqueue(ctx, newTestRecord(u)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	// Connectivity drops after the first delivery: cancel mid-pass.
	stats, err := q.DrainOnce(ctx, func(_ context.Context, _ *queue.Record) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DrainOnce = %v, want context.Canceled", err)
	}
	if stats.Delivered != 1 {
		t.Errorf("stats = %+v, want 1 delivered before cancel", stats)
	}

	if n, _ := q.Len(context.Background()); n != 2 {
		t.Errorf("queue has %d records, want 2 remaining for the next pass", n)
	}
}

func TestEnqueue_DuringDrainDoesNotDeadlock(t *testing.T) {
	q := newTestQueue(t, memory.New())
	ctx := context.Background()

	if err := q.Enqueue(ctx, newTestRecord("/old")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	enqueued := make(chan error, 1)
	_, err := q.DrainOnce(ctx, func(_ context.Context, _ *queue.Record) error {
		// A fresh write arriving while the drain holds the pass.
		enqueued <- q.Enqueue(ctx, newTestRecord("/new"))
		return nil
	})
	if err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if err := <-enqueued; err != nil {
		t.Fatalf("Enqueue during drain: %v", err)
	}

	// The old record was delivered; the new one stays for later.
	records, _ := q.Snapshot(ctx)
	if len(records) != 1 || records[0].URL != "/new" {
		t.Errorf("queue = %+v, want only /new", records)
	}
}
