// Package middleware provides composable middleware for delivery
// attempts. Middleware wraps each attempt synchronously and can modify
// execution (log, time out, record metrics, add tracing, etc.). The
// executor runs every attempt — in-flight or drained — through the
// same chain.
package middleware

import (
	"context"

	"github.com/KBH222/reliq"
)

// Handler is the terminal function that performs the network attempt.
type Handler func(ctx context.Context) (*reliq.Response, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the request being attempted, and the next handler
// to call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, req *reliq.Request, next Handler) (*reliq.Response, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, timeout) executes as:
//
//	logging → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, req *reliq.Request, next Handler) (*reliq.Response, error) {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (*reliq.Response, error) {
				return mw(ctx, req, prev)
			}
		}
		return h(ctx)
	}
}
