package miniapi

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Middleware post-processes a Response before it is sent. Hooks run in
// registration order; each receives the previous hook's output.
type Middleware interface {
	ProcessResponse(ctx context.Context, resp *Response, req *Request) (*Response, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, resp *Response, req *Request) (*Response, error)

// ProcessResponse calls f.
func (f MiddlewareFunc) ProcessResponse(ctx context.Context, resp *Response, req *Request) (*Response, error) {
	return f(ctx, resp, req)
}

// RequestProcessor is an optional capability for middleware that inspects a
// request before routing. It may return an enriched context; a non-nil
// Response skips routing and handler invocation. It is not consulted for
// OPTIONS requests.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *Request) (context.Context, *Response)
}

// applyMiddleware runs every response hook in order. A nil Response from a
// hook keeps the previous one.
func applyMiddleware(ctx context.Context, chain []Middleware, resp *Response, req *Request) (*Response, error) {
	for _, mw := range chain {
		if mw == nil {
			continue
		}
		out, err := mw.ProcessResponse(ctx, resp, req)
		if err != nil {
			return nil, err
		}
		if out != nil {
			resp = out
		}
	}
	return resp, nil
}

// processRequest runs every RequestProcessor in order, stopping at the first
// one that produces a Response.
func processRequest(ctx context.Context, chain []Middleware, req *Request) (context.Context, *Response) {
	for _, mw := range chain {
		rp, ok := mw.(RequestProcessor)
		if !ok {
			continue
		}
		next, resp := rp.ProcessRequest(ctx, req)
		if next != nil {
			ctx = next
		}
		if resp != nil {
			return ctx, resp
		}
	}
	return ctx, nil
}

// panicError converts a recovered panic into an error and logs the stack.
func panicError(ctx context.Context, logger *slog.Logger, rec any, method, path string) error {
	logger.ErrorContext(ctx, "panic recovered",
		"panic", rec,
		"stack", string(debug.Stack()),
		"method", method,
		"path", path,
	)
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}
