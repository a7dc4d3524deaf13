package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	exporterNone   = "none"
	exporterStdout = "stdout"
)

// ErrUnknownExporter is returned for an unsupported --exporter value.
var ErrUnknownExporter = errors.New("unknown exporter")

// setupTelemetry installs global trace and meter providers for the named
// exporter. The returned shutdown flushes and stops them.
func setupTelemetry(ctx context.Context, exporter string, w io.Writer) (func(context.Context) error, error) {
	switch exporter {
	case "", exporterNone:
		return func(context.Context) error { return nil }, nil
	case exporterStdout:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, exporter)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "workerlocal"),
		attribute.String("service.version", version),
	)

	spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("create stdout metric exporter: %w", err),
			tp.Shutdown(ctx),
		)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
