package miniapi

import (
	"net/http"
	"reflect"
	"strings"
)

// Header is an insertion-ordered, case-insensitive set of response headers.
// The zero value is ready to use.
type Header struct {
	names  []string
	values map[string]string
	index  map[string]int
}

// Set stores value under name. An existing entry keeps its position.
func (h *Header) Set(name, value string) {
	key := strings.ToLower(name)
	if h.values == nil {
		h.values = make(map[string]string)
		h.index = make(map[string]int)
	}
	if i, ok := h.index[key]; ok {
		h.names[i] = name
		h.values[key] = value
		return
	}
	h.index[key] = len(h.names)
	h.names = append(h.names, name)
	h.values[key] = value
}

// Get returns the value stored under name.
func (h *Header) Get(name string) string {
	return h.values[strings.ToLower(name)]
}

// Has reports whether name is set.
func (h *Header) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Del removes name.
func (h *Header) Del(name string) {
	key := strings.ToLower(name)
	i, ok := h.index[key]
	if !ok {
		return
	}
	h.names = append(h.names[:i], h.names[i+1:]...)
	delete(h.values, key)
	delete(h.index, key)
	for j := i; j < len(h.names); j++ {
		h.index[strings.ToLower(h.names[j])] = j
	}
}

// Names returns the header names in insertion order.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of headers.
func (h *Header) Len() int { return len(h.names) }

// pairs converts the header set to wire pairs with lower-cased names.
func (h *Header) pairs() []HeaderPair {
	out := make([]HeaderPair, 0, len(h.names)+1)
	for _, name := range h.names {
		out = append(out, HeaderPair{
			Name:  []byte(strings.ToLower(name)),
			Value: []byte(h.values[strings.ToLower(name)]),
		})
	}
	return out
}

// Response is the value a handler produces and middleware post-processes.
// Middleware may change headers and status; the body is encoded exactly once
// when the pipeline sends it.
type Response struct {
	Status int
	Header Header
	Body   Body
}

// NewResponse wraps body into a Response with the given status. Body values
// are classified the same way handler results are.
func NewResponse(body any, status int) *Response {
	return &Response{Status: status, Body: bodyOf(body)}
}

// JSONResponse returns a Response whose body is v encoded as JSON.
func JSONResponse(v any, status int) *Response {
	return &Response{Status: status, Body: JSON{Value: v}}
}

// TextResponse returns a Response whose body is s.
func TextResponse(s string, status int) *Response {
	return &Response{Status: status, Body: Text(s)}
}

// errorResponse builds the fixed {"error": message} shape.
func errorResponse(status int, message string) *Response {
	return JSONResponse(map[string]string{"error": message}, status)
}

// notFound is the response for unmatched routes.
func notFound() *Response {
	return errorResponse(http.StatusNotFound, "Not Found")
}

// wrapResult turns a handler return value into a Response. A *Response
// passes through; anything else gets the route's default status.
func wrapResult(v any, defaultStatus int) *Response {
	if r, ok := v.(*Response); ok {
		if r == nil {
			return &Response{Status: defaultStatus}
		}
		return r
	}
	if r, ok := v.(Response); ok {
		return &r
	}
	return &Response{Status: defaultStatus, Body: bodyOf(v)}
}

// bodyOf classifies a Go value into a Body variant.
func bodyOf(v any) Body {
	switch b := v.(type) {
	case nil:
		return nil
	case Body:
		return b
	case string:
		return Text(b)
	case []byte:
		return Raw(b)
	}

	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return Typed{Value: v}
		}
	case reflect.Struct:
		return Typed{Value: v}
	}
	return JSON{Value: v}
}
