package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider builds a TracerProvider that writes spans to w using
// the stdout exporter. stdouttrace needs no running collector, which fits
// a single-node store (SPEC_FULL.md section 4 explains why jaeger/zipkin
// were dropped in favor of it). Passing io.Discard effectively disables
// tracing while still letting callers use the same tracer.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", "kvs")),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// Tracer returns the named tracer from the global TracerProvider. Callers
// set the global provider once at process start via otel.SetTracerProvider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
