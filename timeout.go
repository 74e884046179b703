package miniapi

import (
	"context"
	"time"
)

// WithTimeout bounds the context passed to the handler. The handler decides
// how to react when the deadline passes; a handler that returns
// context.DeadlineExceeded produces a 500 like any other error.
func WithTimeout(d time.Duration) RouteOption {
	return func(ri *routeInfo) {
		ri.timeout = d
	}
}

// handlerContext applies a route timeout. A zero duration leaves ctx as is.
func handlerContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
