package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ideagraph-backend"

// Tracer returns the engine's tracer. Span export is wired by whatever
// process hosts the engine; without a configured provider these spans are
// no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a pipeline-stage span with the tenant attached.
func StartSpan(ctx context.Context, name, tenantID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attribute.String("tenant.id", tenantID)))
}
