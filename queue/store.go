package queue

import "context"

// Store is the snapshot persistence contract for the offline queue:
// one storage key holding the serialized record list. Implementations
// live under store/ (memory, file, redis, sqlite).
//
// Save must be atomic from the caller's perspective: a reader never
// observes a half-written snapshot.
type Store interface {
	// Load returns the snapshot stored under storageKey. A key that
	// has never been written returns (nil, nil).
	Load(ctx context.Context, storageKey string) ([]byte, error)

	// Save replaces the snapshot under storageKey.
	Save(ctx context.Context, storageKey string, data []byte) error

	// Migrate prepares backend schema, if any.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
