package miniapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                      // requests per second
	Burst           int                          // max burst
	KeyFunc         func(req *Request) string    // default: client address from forwarding headers
	OnLimit         func(req *Request) *Response // default: 429 {"error": ...}
	CleanupInterval time.Duration                // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                // remove limiters idle longer than this (default: 5m)
}

type rateLimiter struct {
	cfg        RateLimitConfig
	retryAfter string

	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns middleware that applies per-key token-bucket limiting
// before routing. Rejected requests never reach a handler.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientKey
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(_ *Request) *Response {
			return errorResponse(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5 * time.Minute
	}

	retry := 1.0
	if cfg.Rate > 0 {
		retry = math.Max(1, math.Ceil(1/cfg.Rate))
	}

	return &rateLimiter{
		cfg:        cfg,
		retryAfter: strconv.FormatFloat(retry, 'f', 0, 64),
		limiters:   make(map[string]*limiterEntry),
	}
}

func (rl *rateLimiter) ProcessRequest(ctx context.Context, req *Request) (context.Context, *Response) {
	if rl.limiter(rl.cfg.KeyFunc(req)).Allow() {
		return ctx, nil
	}

	resp := rl.cfg.OnLimit(req)
	resp.Header.Set("Retry-After", rl.retryAfter)
	return ctx, resp
}

func (rl *rateLimiter) ProcessResponse(_ context.Context, resp *Response, _ *Request) (*Response, error) {
	return resp, nil
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Lazy cleanup of idle limiters.
	if now.Sub(rl.lastCleanup) >= rl.cfg.CleanupInterval {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > rl.cfg.MaxIdle {
				delete(rl.limiters, k)
			}
		}
		rl.lastCleanup = now
	}

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.Rate), rl.cfg.Burst),
		}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// clientKey identifies the client from proxy headers. The transport
// boundary does not expose the peer address, so requests without these
// headers share one bucket.
func clientKey(req *Request) string {
	if fwd := req.Header("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return req.Header("X-Real-IP")
}
