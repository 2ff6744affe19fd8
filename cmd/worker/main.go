package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"relaypool/internal/handler/http/respond"
	pgRepo "relaypool/internal/infra/adapter/persistence/postgres"
	"relaypool/internal/infra/db"
	"relaypool/internal/infra/fetcher"
	"relaypool/internal/infra/seed"
	workerPkg "relaypool/internal/infra/worker"
	"relaypool/internal/observability/logging"
	"relaypool/internal/registry"
	"relaypool/internal/repository"
	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/usecase/probe"
	"relaypool/internal/usecase/scrape"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const query = "SELECT 1 FROM relays LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(query); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("probe_max_concurrent", workerConfig.ProbeMaxConcurrent),
		slog.Duration("probe_timeout", workerConfig.ProbeTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	relayRepo := pgRepo.NewRelayRepo(database)
	seedRelays(ctx, logger, relayRepo)

	svc, probeSvc := setupServices(logger, relayRepo, workerConfig)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, svc.GetHealthMetrics)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startCronWorker(logger, probeSvc, workerConfig, workerMetrics, healthServer)
}

// initLogger builds the process logger and installs it as the slog default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// seedRelays loads the relay seed file named by RELAY_SEED_FILE, if any, and
// registers entries that are not yet in the store.
func seedRelays(ctx context.Context, logger *slog.Logger, repo repository.RelayRepository) {
	path := os.Getenv("RELAY_SEED_FILE")
	if path == "" {
		return
	}

	file, err := seed.Load(path)
	if err != nil {
		logger.Error("failed to load relay seed file",
			slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	created, err := seed.Apply(ctx, repo, file)
	if err != nil {
		logger.Error("failed to apply relay seed file",
			slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("relay seed applied",
		slog.String("path", path),
		slog.Int("created", created))
}

// setupServices wires the relay pool: registry, selector, breaker bank, HTTP
// fetcher, orchestration service and probe service.
func setupServices(logger *slog.Logger, relayRepo repository.RelayRepository, workerConfig *workerPkg.WorkerConfig) (*scrape.Service, *probe.Service) {
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
	logger.Info("fetcher initialized",
		slog.Duration("timeout", fetchConfig.Timeout),
		slog.Int64("max_body_size", fetchConfig.MaxBodySize),
		slog.Bool("deny_private_ips", fetchConfig.DenyPrivateIPs))

	svc := scrape.NewService(reg, selector, bank, httpFetcher, scrape.DefaultConfig(), clk,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	probeConfig := probe.DefaultConfig()
	probeConfig.MaxConcurrent = workerConfig.ProbeMaxConcurrent
	if target := os.Getenv("PROBE_TARGET_URL"); target != "" {
		probeConfig.TargetURL = target
	}
	probeSvc := probe.NewService(relayRepo, reg, httpFetcher, probeConfig)

	return svc, probeSvc
}

// startCronWorker starts the cron scheduler and runs the probe sweep periodically.
func startCronWorker(logger *slog.Logger, svc *probe.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	// Load timezone
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runProbeSweep(logger, svc, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	select {}
}

// runProbeSweep executes a single probe sweep with timeout and error handling.
func runProbeSweep(logger *slog.Logger, svc *probe.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordProbeRun("started")
	logger.Info("probe sweep started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout)
	defer cancel()

	stats, err := svc.SweepAll(ctx)
	if err != nil {
		logger.Error("probe sweep failed", slog.String("error", respond.SanitizeError(err)))
		metrics.RecordProbeRun("failure")
		metrics.RecordProbeDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordProbeRun("success")
	metrics.RecordProbeDuration(time.Since(startTime).Seconds())
	metrics.RecordRelaysChecked(stats.Probed)
	metrics.RecordLastSuccess()

	logger.Info("probe sweep completed",
		slog.Int("probed", stats.Probed),
		slog.Int("healthy", stats.Healthy),
		slog.Int("unhealthy", stats.Unhealthy),
		slog.Duration("duration", stats.Duration),
	)
}
