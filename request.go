package miniapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Headers is a flattened, lower-cased view of the request headers. Declaring a
// Headers field on a request type injects the raw headers.
type Headers map[string]string

// Get returns the value for name, matched case-insensitively.
func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Request is an immutable snapshot of one HTTP exchange. It is created once,
// after the body has been received, and never mutated afterwards.
type Request struct {
	method     string
	path       string
	headers    Headers
	query      url.Values
	body       []byte
	pathParams map[string]string
}

// NewRequest builds a Request. The inputs are copied.
func NewRequest(method, path string, headers Headers, query url.Values, body []byte, pathParams map[string]string) *Request {
	h := make(Headers, len(headers))
	for k, v := range headers {
		h[strings.ToLower(k)] = v
	}
	q := make(url.Values, len(query))
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	p := make(map[string]string, len(pathParams))
	maps.Copy(p, pathParams)

	return &Request{
		method:     method,
		path:       path,
		headers:    h,
		query:      q,
		body:       append([]byte(nil), body...),
		pathParams: p,
	}
}

// newRequestFromScope builds a Request from a transport scope. Duplicate
// header names keep the last value.
func newRequestFromScope(scope Scope, body []byte, pathParams map[string]string) *Request {
	headers := make(Headers, len(scope.Headers))
	for _, hp := range scope.Headers {
		headers[strings.ToLower(string(hp.Name))] = string(hp.Value)
	}

	// Malformed pairs are dropped; ParseQuery still returns what it could parse.
	query, _ := url.ParseQuery(string(scope.QueryString))
	query = dropBlank(query)

	if pathParams == nil {
		pathParams = map[string]string{}
	}

	return &Request{
		method:     scope.Method,
		path:       scope.Path,
		headers:    headers,
		query:      query,
		body:       body,
		pathParams: pathParams,
	}
}

// dropBlank removes empty values so that "?limit=" reads as an absent key.
func dropBlank(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vals := range q {
		kept := slices.DeleteFunc(slices.Clone(vals), func(v string) bool { return v == "" })
		if len(kept) > 0 {
			out[k] = kept
		}
	}
	return out
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Path returns the raw request path.
func (r *Request) Path() string { return r.path }

// Header returns a header value, matched case-insensitively.
func (r *Request) Header(name string) string { return r.headers.Get(name) }

// Headers returns a copy of all request headers.
func (r *Request) Headers() Headers { return maps.Clone(r.headers) }

// Query returns a copy of the parsed query string.
func (r *Request) Query() url.Values {
	q := make(url.Values, len(r.query))
	for k, v := range r.query {
		q[k] = append([]string(nil), v...)
	}
	return q
}

// QueryValue returns the first value for a query key.
func (r *Request) QueryValue(name string) string { return r.query.Get(name) }

// Body returns a copy of the request body.
func (r *Request) Body() []byte { return append([]byte(nil), r.body...) }

// PathParam returns a single path parameter.
func (r *Request) PathParam(name string) string { return r.pathParams[name] }

// PathParams returns a copy of all path parameters.
func (r *Request) PathParams() map[string]string { return maps.Clone(r.pathParams) }

// DecodeJSON decodes the request body into v. An empty body is not an error.
func (r *Request) DecodeJSON(v any) error {
	if len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBindBody, err)
	}
	return nil
}

// jsonObject parses the body as a JSON object. An empty body yields an empty
// map; any other JSON shape is an error.
func (r *Request) jsonObject() (map[string]any, error) {
	if len(r.body) == 0 {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(r.body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %w", ErrBindBody, errors.New("body is not a JSON object"))
	}
	return obj, nil
}
