// Package logging builds the slog loggers shared by the relaypool binaries
// and threads request-scoped loggers through context.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"relaypool/internal/handler/http/requestid"
)

// Level reads LOG_LEVEL (debug, info, warn, error; case-insensitive) and
// defaults to info on anything else.
func Level() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns the production logger: JSON lines on stdout at the
// LOG_LEVEL level, with source locations once the level is warn or tighter.
func NewLogger() *slog.Logger {
	level := Level()
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level >= slog.LevelWarn,
	}))
}

// NewTextLogger returns a human-readable logger for local runs.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: Level()}))
}

// WithRequestID attaches the request ID carried by ctx, if any, so every log
// line of one request correlates.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := requestid.FromContext(ctx); id != "" {
		return logger.With(slog.String("request_id", id))
	}
	return logger
}

type contextKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
