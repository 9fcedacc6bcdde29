// Package tracing exposes the application's OpenTelemetry tracer. Without an
// SDK configured the tracer is a no-op, so instrumented code paths cost
// nothing in deployments that do not export traces.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the birthday-courier application.
var tracer = otel.Tracer("birthday-courier")

// GetTracer returns the global tracer for creating spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "greet.cycle")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
