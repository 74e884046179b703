package miniapi

import "log/slog"

// Group is a collection of routes under a shared prefix with shared
// middleware. Group middleware runs on the handler's response before the
// App's middleware.
type Group struct {
	app        *App
	prefix     string
	middleware []Middleware
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupMiddleware adds middleware to the group.
func WithGroupMiddleware(mw ...Middleware) GroupOption {
	return func(g *Group) {
		g.middleware = append(g.middleware, mw...)
	}
}

// Group creates a new route group with the given prefix and options.
func (a *App) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		app:    a,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group creates a nested group. The prefix and middleware accumulate.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	child := &Group{
		app:        g.app,
		prefix:     g.prefix + prefix,
		middleware: append([]Middleware(nil), g.middleware...),
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// addRoute implements Registrar for Group.
func (g *Group) addRoute(ri routeInfo) {
	ri.template = g.prefix + ri.template
	g.app.addRoute(ri)
}

func (g *Group) getValidator() Validator       { return g.app.validator }
func (g *Group) getLogger() *slog.Logger       { return g.app.logger }
func (g *Group) isDebug() bool                 { return g.app.debug }
func (g *Group) routeMiddleware() []Middleware { return g.middleware }
