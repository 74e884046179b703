package miniapi

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
)

// Registrar is the interface accepted by the registration functions.
// Both *App and *Group implement it.
type Registrar interface {
	addRoute(ri routeInfo)
	getValidator() Validator
	getLogger() *slog.Logger
	isDebug() bool
	routeMiddleware() []Middleware
}

func (a *App) getValidator() Validator       { return a.validator }
func (a *App) getLogger() *slog.Logger       { return a.logger }
func (a *App) isDebug() bool                 { return a.debug }
func (a *App) routeMiddleware() []Middleware { return nil }

// register is the internal generic registration function. Parameter
// descriptors are built here, once; a request type that cannot be bound
// panics at startup rather than failing per request.
func register[Req, Resp any](reg Registrar, method, template string, h Handler[Req, Resp], opts ...RouteOption) {
	ri := routeInfo{
		method:   method,
		template: template,
		reqType:  reflect.TypeFor[Req](),
	}

	for _, opt := range opts {
		opt(&ri)
	}

	res, err := newResolver(ri.reqType, reg.getValidator())
	if err != nil {
		panic("miniapi: " + method + " " + template + ": " + err.Error())
	}

	ri.endpoint = buildEndpoint(h, res, &ri, reg.getLogger(), reg.isDebug(), reg.routeMiddleware())
	reg.addRoute(ri)
}

// buildEndpoint wraps a typed Handler into an Endpoint.
func buildEndpoint[Req, Resp any](h Handler[Req, Resp], res *resolver, ri *routeInfo, logger *slog.Logger, debug bool, routeMW []Middleware) Endpoint {
	status := defaultStatus(ri)
	timeout := ri.timeout

	return func(ctx context.Context, r *Request) (*Response, error) {
		target, err := res.resolve(r)
		if err != nil {
			return nil, err
		}
		req := target.Interface().(*Req)

		if debug {
			logger.InfoContext(ctx, "handler params resolved",
				slog.String("method", r.Method()),
				slog.String("path", r.Path()),
				slog.Any("params", req),
			)
		}

		ctx, cancel := handlerContext(ctx, timeout)
		defer cancel()

		out, err := h(ctx, req)
		if err != nil {
			return nil, err
		}

		resp := wrapResult(out, status)
		if len(routeMW) == 0 {
			return resp, nil
		}
		return applyMiddleware(ctx, routeMW, resp, r)
	}
}

// Get registers a GET handler.
func Get[Req, Resp any](reg Registrar, template string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodGet, template, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](reg Registrar, template string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPost, template, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](reg Registrar, template string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPut, template, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](reg Registrar, template string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodDelete, template, h, opts...)
}

// Handle registers a prebuilt Endpoint. It is the escape hatch for handlers
// that want the raw Request and build their own Response.
func Handle(reg Registrar, method, template string, ep Endpoint) {
	routeMW := reg.routeMiddleware()
	if len(routeMW) > 0 {
		inner := ep
		ep = func(ctx context.Context, r *Request) (*Response, error) {
			resp, err := inner(ctx, r)
			if err != nil {
				return nil, err
			}
			return applyMiddleware(ctx, routeMW, resp, r)
		}
	}
	reg.addRoute(routeInfo{method: method, template: template, endpoint: ep})
}
