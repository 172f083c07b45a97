package reliq

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("reliq: no store configured")
	ErrStoreClosed = errors.New("reliq: store closed")

	// Request errors.
	ErrInvalidMethod = errors.New("reliq: invalid HTTP method")
	ErrEmptyURL      = errors.New("reliq: empty request URL")

	// Delivery errors.
	ErrExhausted = errors.New("reliq: retries exhausted")

	// Lifecycle errors.
	ErrClosed         = errors.New("reliq: client closed")
	ErrDrainInFlight  = errors.New("reliq: drain already in progress")
	ErrAlreadyStarted = errors.New("reliq: client already started")
)
