package queue

import (
	"net/http"
	"time"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/key"
)

// Record is the durable representation of one pending write. It maps
// to exactly one logical write intent: the idempotency key inside
// Header is fixed at creation and never regenerated, so re-delivery is
// safe at the server. Only the drainer mutates a queued record, and
// only its Retries field.
type Record struct {
	ID       string      `json:"id" msgpack:"id"`
	URL      string      `json:"url" msgpack:"url"`
	Method   string      `json:"method" msgpack:"method"`
	Header   http.Header `json:"headers" msgpack:"headers"`
	Body     []byte      `json:"body" msgpack:"body"`
	QueuedAt time.Time   `json:"queued_at" msgpack:"queued_at"`
	Retries  int         `json:"retries" msgpack:"retries"`
}

// NewRecord builds a Record from a request, cloning the header so the
// queued copy is immutable from the caller's point of view.
func NewRecord(req *reliq.Request, now time.Time) *Record {
	return &Record{
		ID:       key.NewRecordID(),
		URL:      req.URL,
		Method:   req.Method,
		Header:   req.Header.Clone(),
		Body:     req.Body,
		QueuedAt: now,
	}
}

// Key returns the idempotency key embedded in the record's headers,
// or the empty string for an untagged record.
func (r *Record) Key() string {
	return r.Header.Get(reliq.IdempotencyHeader)
}
