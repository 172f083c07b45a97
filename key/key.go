// Package key generates the opaque tokens reliq attaches to requests.
//
// Keys are TypeIDs: K-sortable (UUIDv7-based), globally unique, URL-safe
// strings in the format "prefix_suffix". The UUIDv7 layout is a millisecond
// timestamp followed by random bits, so keys are time-ordered and collision
// within a session is overwhelmingly improbable.
package key

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies what a generated token is for.
type Prefix string

const (
	// PrefixRequest tags idempotency keys carried on write requests.
	PrefixRequest Prefix = "req"
	// PrefixRecord tags identities of queued offline records.
	PrefixRecord Prefix = "rec"
)

// New generates a fresh idempotency key. Each call returns a distinct
// value; two logical writes never share a key.
func New() string {
	return generate(PrefixRequest)
}

// NewRecordID generates a unique identity for a queued record.
func NewRecordID() string {
	return generate(PrefixRecord)
}

// generate produces a TypeID string with the given prefix. It panics if
// prefix is not a valid TypeID prefix (programming error).
func generate(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("key: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Parse validates a token and returns its prefix. Returns an error if
// the token is not a well-formed TypeID.
func Parse(s string) (Prefix, error) {
	if s == "" {
		return "", fmt.Errorf("key: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("key: parse %q: %w", s, err)
	}

	return Prefix(tid.Prefix()), nil
}
