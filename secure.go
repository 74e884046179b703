package miniapi

import (
	"context"
	"strconv"
)

// SecureConfig configures the Secure headers middleware.
type SecureConfig struct {
	ContentTypeNosniff bool   // default: true → X-Content-Type-Options: nosniff
	FrameDeny          bool   // default: true → X-Frame-Options: DENY
	HSTSMaxAge         int    // default: 0 (disabled). If >0: Strict-Transport-Security
	ReferrerPolicy     string // default: "strict-origin-when-cross-origin"
}

// Secure returns middleware that sets security response headers.
// With no arguments, it uses sensible defaults.
func Secure(cfg ...SecureConfig) Middleware {
	c := SecureConfig{
		ContentTypeNosniff: true,
		FrameDeny:          true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return MiddlewareFunc(func(_ context.Context, resp *Response, _ *Request) (*Response, error) {
		if c.ContentTypeNosniff {
			resp.Header.Set("X-Content-Type-Options", "nosniff")
		}
		if c.FrameDeny {
			resp.Header.Set("X-Frame-Options", "DENY")
		}
		if c.HSTSMaxAge > 0 {
			resp.Header.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(c.HSTSMaxAge))
		}
		if c.ReferrerPolicy != "" {
			resp.Header.Set("Referrer-Policy", c.ReferrerPolicy)
		}
		return resp, nil
	})
}
