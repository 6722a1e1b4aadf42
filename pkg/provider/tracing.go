package provider

import (
	"context"
	"errors"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jdgilhuly/aicomplete/pkg/provider"

// TracingTransport wraps a Transport and records one client span per call.
type TracingTransport struct {
	next   Transport
	tracer trace.Tracer
}

// NewTracingTransport wraps next. A nil tp uses the global tracer provider.
func NewTracingTransport(next Transport, tp trace.TracerProvider) *TracingTransport {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingTransport{next: next, tracer: tp.Tracer(tracerName)}
}

// PostJSON implements Transport.
func (t *TracingTransport) PostJSON(ctx context.Context, rawURL string, headers []Header, body []byte) ([]byte, error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", "POST"),
		attribute.String("http.url", rawURL),
		attribute.Int("http.request_content_length", len(body)),
	}
	if u, err := url.Parse(rawURL); err == nil {
		attrs = append(attrs, attribute.String("server.address", u.Host))
	}

	ctx, span := t.tracer.Start(ctx, "llm.completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	resp, err := t.next.PostJSON(ctx, rawURL, headers, body)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			span.SetAttributes(attribute.Int("http.status_code", se.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response_content_length", len(resp)))
	return resp, nil
}
