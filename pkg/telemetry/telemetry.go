// Package telemetry wires the optional OpenTelemetry trace exporter.
//
// Tracing stays off unless [EndpointEnvVar] is set, in which case spans from
// checker builds and check passes are shipped over OTLP/gRPC.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/lintelhq/lintel/pkg/version"
)

// EndpointEnvVar is the standard OTLP endpoint variable. Setting it enables
// span export.
const EndpointEnvVar = "OTEL_EXPORTER_OTLP_ENDPOINT"

// shutdownTimeout bounds the final span flush on exit.
const shutdownTimeout = 5 * time.Second

// Shutdown flushes remaining spans and stops the tracer provider.
type Shutdown func(ctx context.Context)

// Setup installs the global tracer provider. When the endpoint variable is
// unset nothing is installed and the returned [Shutdown] is a no-op.
func Setup(ctx context.Context) (Shutdown, error) {
	if os.Getenv(EndpointEnvVar) == "" {
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("lintel"),
		semconv.ServiceVersion(version.GetVersion()),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		err := tp.Shutdown(ctx)
		if err != nil {
			slog.Warn("shut down tracer provider", slog.Any("error", err))
		}
	}, nil
}
