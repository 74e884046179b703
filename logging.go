package miniapi

import (
	"context"
	"log/slog"
	"time"
)

// Logger returns middleware that logs one line per exchange using the
// provided slog.Logger. Register it last so it sees the final status.
func Logger(logger *slog.Logger) Middleware {
	return MiddlewareFunc(func(ctx context.Context, resp *Response, req *Request) (*Response, error) {
		attrs := []slog.Attr{
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.Int("status", resp.Status),
		}
		if start, ok := StartTime(ctx); ok {
			attrs = append(attrs, slog.Duration("latency", time.Since(start)))
		}
		if id := RequestIDFrom(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		logger.LogAttrs(ctx, slog.LevelInfo, "request", attrs...)
		return resp, nil
	})
}
