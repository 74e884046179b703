package miniapi

import (
	"context"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// CORS returns middleware that adds Cross-Origin Resource Sharing headers.
// If no config is provided, permissive defaults are used. Preflight requests
// already receive 204 from the dispatcher, so this only decorates headers.
func CORS(cfg ...CORSConfig) Middleware {
	c := CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	wildcard := slices.Contains(c.AllowOrigins, "*")
	methods := strings.Join(c.AllowMethods, ", ")
	headers := strings.Join(c.AllowHeaders, ", ")
	expose := strings.Join(c.ExposeHeaders, ", ")
	maxAge := ""
	if c.MaxAge > 0 {
		maxAge = strconv.Itoa(c.MaxAge)
	}

	return MiddlewareFunc(func(_ context.Context, resp *Response, req *Request) (*Response, error) {
		origin := req.Header("Origin")
		switch {
		case wildcard && !c.AllowCredentials:
			resp.Header.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && (wildcard || slices.Contains(c.AllowOrigins, origin)):
			resp.Header.Set("Access-Control-Allow-Origin", origin)
		default:
			return resp, nil
		}

		resp.Header.Set("Access-Control-Allow-Methods", methods)
		resp.Header.Set("Access-Control-Allow-Headers", headers)
		if expose != "" {
			resp.Header.Set("Access-Control-Expose-Headers", expose)
		}
		if c.AllowCredentials {
			resp.Header.Set("Access-Control-Allow-Credentials", "true")
		}
		if maxAge != "" {
			resp.Header.Set("Access-Control-Max-Age", maxAge)
		}
		resp.Header.Set("Vary", "Origin")
		return resp, nil
	})
}
