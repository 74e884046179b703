package miniapi

import (
	"net/http"
	"reflect"
	"time"
)

// routeInfo holds registration-time metadata for a route.
type routeInfo struct {
	method   string
	template string
	status   int
	timeout  time.Duration

	reqType reflect.Type

	endpoint Endpoint
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithStatus sets the status used when the handler returns a plain value.
// Handlers returning a *Response keep their own status.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

func defaultStatus(ri *routeInfo) int {
	if ri.status == 0 {
		return http.StatusOK
	}
	return ri.status
}
