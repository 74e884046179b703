package miniapi

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metricsMiddleware struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// Metrics returns middleware that records a request counter and a latency
// histogram on meter. Register it after any middleware that may change the
// status.
func Metrics(meter metric.Meter) (Middleware, error) {
	requests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &metricsMiddleware{requests: requests, duration: duration}, nil
}

func (m *metricsMiddleware) ProcessResponse(ctx context.Context, resp *Response, req *Request) (*Response, error) {
	attrs := metric.WithAttributes(
		attribute.String("method", req.Method()),
		attribute.Int("status", resp.Status),
	)

	m.requests.Add(ctx, 1, attrs)
	if start, ok := StartTime(ctx); ok {
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return resp, nil
}
