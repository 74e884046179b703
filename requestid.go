package miniapi

import (
	"context"

	"github.com/google/uuid"
)

type requestID string

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: UUIDv4
}

type requestIDMiddleware struct {
	cfg RequestIDConfig
}

// RequestID returns middleware that assigns a unique ID to each exchange.
// The ID is read from the request header or generated, stored in the
// context for handlers and later middleware, and echoed on the response.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}
	return &requestIDMiddleware{cfg: c}
}

func (m *requestIDMiddleware) ProcessRequest(ctx context.Context, req *Request) (context.Context, *Response) {
	return WithValue(ctx, requestID(m.id(req))), nil
}

func (m *requestIDMiddleware) ProcessResponse(ctx context.Context, resp *Response, req *Request) (*Response, error) {
	id := RequestIDFrom(ctx)
	if id == "" {
		id = m.id(req)
	}
	resp.Header.Set(m.cfg.Header, id)
	return resp, nil
}

func (m *requestIDMiddleware) id(req *Request) string {
	if id := req.Header(m.cfg.Header); id != "" {
		return id
	}
	return m.cfg.Generator()
}

// RequestIDFrom returns the request ID stored by the RequestID middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := Value[requestID](ctx)
	return string(id)
}
