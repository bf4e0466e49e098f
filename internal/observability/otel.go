// Package observability wires OpenTelemetry trace export into Genkit's
// tracer provider. Every pipeline run already produces Genkit spans;
// this package just gives them somewhere to go.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector address (host:port). Empty
	// disables export entirely.
	Endpoint string
	// Environment is the deployment environment tag.
	Environment string
	// ServiceName is the service name attached to exported spans.
	ServiceName string
}

// Setup registers an OTLP HTTP exporter with Genkit's TracerProvider.
// Returns a shutdown function that flushes pending spans. A failed
// exporter setup degrades to a no-op rather than failing startup.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	// Genkit owns its TracerProvider and resource, so service identity
	// has to travel through the standard OTEL environment variables. A
	// failed Setenv only degrades span attribution, not export.
	if cfg.ServiceName != "" {
		if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
			slog.Warn("failed to set OTEL_SERVICE_NAME, spans keep the default service name", "error", err)
		}
	}
	if cfg.Environment != "" {
		if err := os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment); err != nil {
			slog.Warn("failed to set OTEL_RESOURCE_ATTRIBUTES, spans miss the environment tag", "error", err)
		}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
