package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	} {
		t.Setenv(key, "")
	}

	assert.Equal(t, DefaultPoolConfig(), PoolConfigFromEnv())
}

func TestPoolConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "20")
	t.Setenv("DB_CONN_MAX_LIFETIME", "15m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "2m")

	cfg := PoolConfigFromEnv()
	assert.Equal(t, 50, cfg.MaxOpenConns)
	assert.Equal(t, 20, cfg.MaxIdleConns)
	assert.Equal(t, 15*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 2*time.Minute, cfg.ConnMaxIdleTime)
}

func TestPoolConfigFromEnv_UnusableValuesKeepDefaults(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DB_MAX_IDLE_CONNS", "-3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "-1h")

	def := DefaultPoolConfig()
	cfg := PoolConfigFromEnv()
	assert.Equal(t, def.MaxOpenConns, cfg.MaxOpenConns)
	assert.Equal(t, def.MaxIdleConns, cfg.MaxIdleConns)
	assert.Equal(t, def.ConnMaxLifetime, cfg.ConnMaxLifetime)
}
