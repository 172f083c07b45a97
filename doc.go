// Package reliq provides reliable HTTP request delivery for Go client
// applications: automatic retry with exponential backoff, idempotency
// tagging for writes, and a durable offline queue that survives process
// restarts and network outages, draining itself when connectivity returns.
//
// reliq is designed as a library, not a service. Import it, configure a
// store for the offline queue, and issue requests through a Client.
//
// # Quick Start
//
//	c, err := client.New(file.New("queue.json"))
//	if err != nil { ... }
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Stop()
//
//	resp, err := c.Post(ctx, "https://api.example.com/orders", body)
//
// # Architecture
//
// reliq follows a composable store pattern: the queue package defines a
// snapshot store interface and the backends under store/ implement it
// (memory, file, redis, sqlite). Write requests carry a TypeID-based idempotency
// key — time-ordered, globally unique — fixed at creation and reused on
// every retry so the server can deduplicate repeated deliveries.
//
// This root package holds the shared request/response types, the
// configuration surface, and sentinel errors. Subsystems live in their
// own packages: key, backoff, retry, connectivity, queue, middleware,
// executor, drain, client.
package reliq
