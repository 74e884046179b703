package miniapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// App owns the route tables and the middleware list and dispatches
// exchanges delivered by a transport. Configure it before serving; it is
// read-only afterwards. mu only serializes registration calls with each
// other; serving reads the tables without locking.
type App struct {
	router     *Router
	middleware []Middleware

	validator   Validator
	logger      *slog.Logger
	tracer      SpanStarter
	maxBodySize int64
	debug       bool

	upgrader websocket.Upgrader

	mu sync.Mutex
}

// AppOption configures an App.
type AppOption func(*App)

// WithValidator sets the validator for validated-value parameters.
// Passing nil disables tag validation; SelfValidator still runs.
func WithValidator(v Validator) AppOption {
	return func(a *App) {
		a.validator = v
	}
}

// WithLogger sets the logger used by the dispatcher.
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) {
		a.logger = l
	}
}

// WithDebug logs resolved handler parameters and handler failures.
func WithDebug(debug bool) AppOption {
	return func(a *App) {
		a.debug = debug
	}
}

// WithUpgrader sets the WebSocket upgrader used by ServeHTTP.
func WithUpgrader(u websocket.Upgrader) AppOption {
	return func(a *App) {
		a.upgrader = u
	}
}

// SpanStarter is a tracing hook for creating one span per exchange.
// OTelTracer adapts an OpenTelemetry tracer.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(status int))
}

// WithTracer sets a tracing hook for the App.
func WithTracer(s SpanStarter) AppOption {
	return func(a *App) {
		a.tracer = s
	}
}

// New creates an App with the given options.
func New(opts ...AppOption) *App {
	a := &App{
		router:      NewRouter(),
		validator:   NewStructValidator(),
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Use appends middleware. Hooks run in the order added.
func (a *App) Use(mw ...Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middleware = append(a.middleware, mw...)
}

// Router returns the App's route table.
func (a *App) Router() *Router { return a.router }

// addRoute registers a routeInfo with the router.
func (a *App) addRoute(ri routeInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.router.Register(ri.method, ri.template, ri.endpoint)
}

// Serve dispatches one exchange. It is the entry point a transport calls
// for every inbound connection.
func (a *App) Serve(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error {
	switch scope.Type {
	case ScopeHTTP:
		return a.serveHTTP(ctx, scope, receive, send)
	case ScopeWebSocket:
		return a.serveWebSocket(ctx, scope, receive, send)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScope, scope.Type)
	}
}
