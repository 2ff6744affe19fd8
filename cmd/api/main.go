package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/jackc/pgx/v5/stdlib"

	hhttp "relaypool/internal/handler/http"
	"relaypool/internal/handler/http/orchestrator"
	"relaypool/internal/handler/http/relay"
	"relaypool/internal/handler/http/requestid"
	pgRepo "relaypool/internal/infra/adapter/persistence/postgres"
	"relaypool/internal/infra/db"
	"relaypool/internal/infra/fetcher"
	"relaypool/internal/observability/logging"
	"relaypool/internal/observability/tracing"
	"relaypool/internal/registry"
	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/usecase/scrape"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	handler := setupServer(logger, database, version)

	runServer(logger, handler, version)
}

// initLogger builds the process logger and installs it as the slog default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, version string) http.Handler {
	relayRepo := pgRepo.NewRelayRepo(database)
	clk := clock.New()

	reg := registry.New(relayRepo, clk, registry.DefaultConfig(), registry.DefaultFeedbackConfig())
	selector := registry.NewSelector(registry.DefaultSelectorConfig(), clk,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	bank := circuitbreaker.NewBank(circuitbreaker.DefaultConfig())

	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetch configuration", slog.Any("error", err))
		os.Exit(1)
	}
	httpFetcher := fetcher.New(fetchConfig)

	svc := scrape.NewService(reg, selector, bank, httpFetcher, scrape.DefaultConfig(), clk,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	mux := http.NewServeMux()
	relay.Register(mux, relayRepo, reg, svc)
	orchestrator.Register(mux, svc, bank)

	// Operational endpoints (no auth, scraped by infrastructure)
	mux.Handle("GET /health", &hhttp.HealthHandler{DB: database, Version: version, Pool: svc.GetHealthMetrics})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	return applyMiddleware(logger, mux)
}

// applyMiddleware wraps the handler with the middleware chain.
// Middleware order: Request ID -> Tracing -> Rate Limit -> Recovery -> Logging -> Timeout -> Body Limit -> Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	// Fetch and batch submissions drive real outbound traffic, so the whole
	// API is capped per client IP.
	rateLimiter := hhttp.NewRateLimiter(envInt("API_RATE_LIMIT", 120), time.Minute)

	// Batches hold the connection for the full retry loop of every target,
	// so the request timeout is generous.
	requestTimeout := envDuration("API_REQUEST_TIMEOUT", 2*time.Minute)

	middlewareChain := handler

	// Apply in reverse order (innermost to outermost)
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Timeout(requestTimeout)(middlewareChain)
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)
	middlewareChain = rateLimiter.Limit(middlewareChain)
	middlewareChain = tracing.Middleware(middlewareChain)
	middlewareChain = requestid.Middleware(middlewareChain)

	return middlewareChain
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if val, err := time.ParseDuration(raw); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
