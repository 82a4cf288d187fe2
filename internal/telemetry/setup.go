package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConfigureOpenTelemetry installs a process-global TracerProvider tagged
// with serviceName, the same "configure once at startup, inject Tracer
// everywhere else" convention the runtime's ClueTracer assumes. It returns
// a shutdown func the caller must invoke on exit.
//
// With no OTLP exporter registered, spans are neither exported nor kept
// once they end; wiring a concrete exporter is a deployment concern
// (an OTLP collector sidecar reading OTEL_EXPORTER_OTLP_* env vars), not
// something this package hardcodes.
func ConfigureOpenTelemetry(ctx context.Context, serviceName string) func(context.Context) error {
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		res = resource.Default()
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}
