package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/KBH222/reliq"
)

// Logging returns middleware that logs each delivery attempt.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *reliq.Request, next Handler) (*reliq.Response, error) {
		logger.Debug("attempt started",
			slog.String("method", req.Method),
			slog.String("url", req.URL),
		)

		start := time.Now()
		resp, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("attempt failed",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("attempt completed",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Int("status", resp.Status),
				slog.Duration("elapsed", elapsed),
			)
		}

		return resp, err
	}
}
