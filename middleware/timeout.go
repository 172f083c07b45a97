package middleware

import (
	"context"
	"time"

	"github.com/KBH222/reliq"
)

// Timeout returns middleware that bounds a single delivery attempt.
// The retry loop's backoff sits outside this bound; only the network
// attempt itself is cut off.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *reliq.Request, next Handler) (*reliq.Response, error) {
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(tctx)
	}
}
