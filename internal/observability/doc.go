// Package observability groups the cross-cutting telemetry of relaypool.
//
// Subpackages:
//   - logging: slog construction and request-scoped loggers
//   - metrics: Prometheus collectors for selection, fetch, and breaker state
//   - tracing: OpenTelemetry HTTP middleware and span helpers
package observability
