package miniapi

import (
	"context"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type otelTracer struct {
	tracer trace.Tracer
}

// OTelTracer adapts an OpenTelemetry tracer to SpanStarter. Each exchange
// becomes a server span; statuses of 500 and above mark the span as failed.
func OTelTracer(t trace.Tracer) SpanStarter {
	return &otelTracer{tracer: t}
}

func (o *otelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(status int)) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, attribute.String(k, attrs[k]))
	}

	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(kvs...),
	)

	return ctx, func(status int) {
		if status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		span.End()
	}
}
