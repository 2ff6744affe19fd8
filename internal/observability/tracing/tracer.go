package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("relaypool")

// GetTracer returns the shared tracer used for relaypool spans.
func GetTracer() trace.Tracer {
	return tracer
}
