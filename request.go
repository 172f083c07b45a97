package reliq

import (
	"encoding/json"
	"net/http"
)

// IdempotencyHeader is the header carrying the idempotency key on
// write requests. Its value is fixed when the request is created and
// reused verbatim on every retry and queued re-delivery.
const IdempotencyHeader = "X-Idempotency-Key"

// Request is a logical HTTP request handed to the executor.
type Request struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte

	// SkipIdempotency disables automatic idempotency tagging for this
	// request. Writes are tagged by default.
	SkipIdempotency bool
}

// NewRequest creates a Request with an empty header map.
func NewRequest(method, url string, body []byte) *Request {
	return &Request{
		URL:    url,
		Method: method,
		Header: make(http.Header),
		Body:   body,
	}
}

// IsWrite reports whether method is a state-changing HTTP method.
// Only writes are idempotency-tagged and eligible for offline queuing.
func IsWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// ValidMethod reports whether method is one the executor accepts.
func ValidMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Response is the resolved outcome of a Request. Callers always
// receive a Response or an error, never a raw transport exception.
type Response struct {
	// Status is the HTTP status code. Zero for a queued pseudo-success.
	Status int
	Header http.Header
	Body   []byte

	// Queued marks a pseudo-success: the write was durably queued for
	// later delivery instead of sent. UIs can proceed optimistically.
	Queued bool
}

// OK reports whether the response is a success: a 2xx status, or a
// queued pseudo-success.
func (r *Response) OK() bool {
	return r.Queued || (r.Status >= 200 && r.Status < 300)
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// NewQueuedResponse builds the synthetic response returned when a
// write is queued for later delivery.
func NewQueuedResponse() *Response {
	return &Response{
		Status: 0,
		Header: make(http.Header),
		Body:   []byte(`{"queued":true}`),
		Queued: true,
	}
}
