// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "taskorbit"

type Options struct {
	// Exporter is none, stdout or otlp.
	Exporter string
	// Endpoint is the OTLP/HTTP collector host:port; empty uses the SDK default.
	Endpoint string
	// Writer receives stdout spans; defaults to os.Stdout.
	Writer io.Writer
}

// Setup installs a tracer provider and returns its shutdown function. With
// Exporter "none" the global no-op provider is left in place.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch opts.Exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case "otlp":
		var o []otlptracehttp.Option
		if opts.Endpoint != "" {
			o = append(o, otlptracehttp.WithEndpoint(opts.Endpoint), otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, o...)
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: create %s exporter: %w", opts.Exporter, err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
