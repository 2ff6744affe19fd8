// Package logging centralizes logger construction for relaypool.
//
// Both binaries call NewLogger at startup and install it as the process
// default:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
// HTTP handlers derive a per-request logger with WithRequestID so orchestration
// log lines carry the X-Request-ID echoed to the client, and background jobs
// pass loggers through context with WithLogger / FromContext.
package logging
