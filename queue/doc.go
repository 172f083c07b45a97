// Package queue implements the durable offline queue: an ordered list
// of not-yet-confirmed write requests persisted as a single snapshot
// under a fixed storage key, surviving process restarts.
//
// The queue package defines the snapshot Store interface; backends live
// under store/ (memory, file, redis, sqlite). Every mutation — enqueue,
// retry-count bump, removal — persists the full re-serialized list
// before the in-memory view is updated, so a crash between the two
// cannot lose the persisted state.
//
// Records are processed strictly FIFO by DrainOnce. A record leaves the
// queue only by successful delivery or by exhausting its retry budget,
// in which case the DropHandler is told about the data loss.
package queue
