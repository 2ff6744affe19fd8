// Package tracing provides OpenTelemetry tracing integration.
//
// The HTTP middleware extracts W3C Trace Context headers from incoming
// requests, opens a server span per request, and echoes the trace ID back
// to the client via the X-Trace-Id response header.
//
// Example usage:
//
//	import "relaypool/internal/observability/tracing"
//
//	mux := http.NewServeMux()
//	handler := tracing.Middleware(mux)
//
//	func doWork(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "probe-sweep")
//	    defer span.End()
//	    // ... work ...
//	}
package tracing
