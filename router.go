package miniapi

import (
	"fmt"
	"net/http"
	"strings"
)

// Methods accepted by Router.Register.
var routeMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// segment is one slash-separated piece of a path template. A segment written
// as ":name" is a parameter; everything else is a literal.
type segment struct {
	value string
	param bool
}

func parseTemplate(template string) []segment {
	parts := strings.Split(template, "/")
	segs := make([]segment, len(parts))
	for i, p := range parts {
		if len(p) > 1 && p[0] == ':' {
			segs[i] = segment{value: p[1:], param: true}
			continue
		}
		segs[i] = segment{value: p}
	}
	return segs
}

// matchSegments matches path parts against a template. Literal segments
// compare exactly; parameter segments accept any non-empty part.
func matchSegments(segs []segment, parts []string) (map[string]string, bool) {
	if len(segs) != len(parts) {
		return nil, false
	}
	params := make(map[string]string)
	for i, s := range segs {
		if s.param {
			if parts[i] == "" {
				return nil, false
			}
			params[s.value] = parts[i]
			continue
		}
		if s.value != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// Route is one registered path template with its per-method endpoints.
type Route struct {
	Template string
	segments []segment
	handlers map[string]Endpoint
}

// Methods returns the methods registered for this template.
func (rt *Route) Methods() []string {
	out := make([]string, 0, len(rt.handlers))
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		if _, ok := rt.handlers[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Handler returns the endpoint registered for method.
func (rt *Route) Handler(method string) (Endpoint, bool) {
	ep, ok := rt.handlers[method]
	return ep, ok
}

// Router stores path templates in registration order and matches request
// paths against them. It is written during setup and only read while serving.
type Router struct {
	routes []*Route
	byPath map[string]*Route

	wsRoutes []*wsRoute
	wsByPath map[string]*wsRoute
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{
		byPath:   make(map[string]*Route),
		wsByPath: make(map[string]*wsRoute),
	}
}

// Register stores ep under (method, template). Registering the same pair
// again replaces the handler; the template keeps its original position.
func (r *Router) Register(method, template string, ep Endpoint) {
	if !routeMethods[method] {
		panic("miniapi: unsupported method " + method)
	}

	rt, ok := r.byPath[template]
	if !ok {
		rt = &Route{
			Template: template,
			segments: parseTemplate(template),
			handlers: make(map[string]Endpoint),
		}
		r.byPath[template] = rt
		r.routes = append(r.routes, rt)
	}
	rt.handlers[method] = ep
}

// Match returns the first registered template that structurally matches
// path, with the extracted path parameters. The method is not considered.
func (r *Router) Match(path string) (*Route, map[string]string, bool) {
	parts := strings.Split(path, "/")
	for _, rt := range r.routes {
		if params, ok := matchSegments(rt.segments, parts); ok {
			return rt, params, true
		}
	}
	return nil, nil, false
}

// Lookup resolves method and path to an endpoint. It fails with
// ErrRouteNotFound when no template matches or the first matching template
// has no handler for method.
func (r *Router) Lookup(method, path string) (Endpoint, map[string]string, error) {
	rt, params, ok := r.Match(path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	ep, ok := rt.Handler(method)
	if !ok {
		return nil, params, fmt.Errorf("%w: %s %s", ErrRouteNotFound, method, rt.Template)
	}
	return ep, params, nil
}

// Routes returns the registered templates in registration order.
func (r *Router) Routes() []*Route {
	return append([]*Route(nil), r.routes...)
}

func (r *Router) registerWebSocket(template string, h wsHandler) {
	if rt, ok := r.wsByPath[template]; ok {
		rt.handler = h
		return
	}
	rt := &wsRoute{template: template, segments: parseTemplate(template), handler: h}
	r.wsByPath[template] = rt
	r.wsRoutes = append(r.wsRoutes, rt)
}

func (r *Router) matchWebSocket(path string) (*wsRoute, map[string]string, bool) {
	parts := strings.Split(path, "/")
	for _, rt := range r.wsRoutes {
		if params, ok := matchSegments(rt.segments, parts); ok {
			return rt, params, true
		}
	}
	return nil, nil, false
}
