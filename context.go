package miniapi

import (
	"context"
	"time"
)

type contextKey[T any] struct{}

// WithValue stores a typed value in ctx. For use in request processors.
func WithValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, val)
}

// Value retrieves a typed value stored with WithValue.
func Value[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

type exchangeStart time.Time

// StartTime returns when the dispatcher began handling the current exchange.
func StartTime(ctx context.Context) (time.Time, bool) {
	t, ok := Value[exchangeStart](ctx)
	return time.Time(t), ok
}
