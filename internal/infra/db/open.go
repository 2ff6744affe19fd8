package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"relaypool/internal/pkg/config"
)

// PoolConfig sizes the sql.DB connection pool backing the relay store.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig matches a pool of ~100 relays probed concurrently plus
// the API's selection reads.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFromEnv overlays DB_* variables on the defaults, fail-open like
// the rest of the env configuration.
func PoolConfigFromEnv() PoolConfig {
	def := DefaultPoolConfig()
	positiveInt := func(v int) error { return config.ValidateIntRange(v, 1, 1000) }

	cfg := PoolConfig{
		MaxOpenConns:    config.Int("DB_MAX_OPEN_CONNS", def.MaxOpenConns, positiveInt).Value,
		MaxIdleConns:    config.Int("DB_MAX_IDLE_CONNS", def.MaxIdleConns, positiveInt).Value,
		ConnMaxLifetime: config.Duration("DB_CONN_MAX_LIFETIME", def.ConnMaxLifetime, config.ValidatePositiveDuration).Value,
		ConnMaxIdleTime: config.Duration("DB_CONN_MAX_IDLE_TIME", def.ConnMaxIdleTime, config.ValidatePositiveDuration).Value,
	}
	return cfg
}

// Open connects to the relay store named by DATABASE_URL and sizes its pool.
// A store we cannot reach at boot is fatal: nothing in the service works
// without relay health rows.
func Open() *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := PoolConfigFromEnv()
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping relay store: %v", err)
	}

	slog.Info("relay store connected",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))
	return pool
}
