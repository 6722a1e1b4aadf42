// Package observability installs the OpenTelemetry tracer provider.
package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "aicomplete"

// Setup installs a global tracer provider exporting spans over OTLP/HTTP to
// endpoint ("host:port", optionally prefixed with http:// or https://).
// Callers must Shutdown the returned provider to flush pending spans.
func Setup(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, error) {
	opts, err := exporterOptions(endpoint)
	if err != nil {
		return nil, err
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func exporterOptions(endpoint string) ([]otlptracehttp.Option, error) {
	host := endpoint
	insecure := false
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		host, insecure = strings.TrimPrefix(endpoint, "http://"), true
	case strings.HasPrefix(endpoint, "https://"):
		host = strings.TrimPrefix(endpoint, "https://")
	}
	host = strings.TrimSuffix(host, "/")
	if host == "" || strings.Contains(host, "/") {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: want host:port", endpoint)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(host)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts, nil
}
