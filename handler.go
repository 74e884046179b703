package miniapi

import "context"

// Void is used as a type parameter when a handler declares no parameters.
type Void struct{}

// Handler is the typed handler signature. Req is a struct whose exported
// fields are the handler's declared parameters; Resp may be a map, a string,
// a struct (validated value) or a *Response.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (Resp, error)

// Endpoint is a compiled route handler. It binds the request onto the
// handler's parameters, invokes it and wraps the result.
type Endpoint func(ctx context.Context, req *Request) (*Response, error)
