package db

import (
	"database/sql"
)

// MigrateUp creates the relay schema if it does not already exist.
// Relay rows are provisioned out of band (seed file or admin tooling); the
// orchestration core only mutates their health columns.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS relays (
    id                   TEXT PRIMARY KEY,
    host                 TEXT NOT NULL,
    port                 INTEGER NOT NULL,
    username             TEXT,
    password             TEXT,
    active               BOOLEAN NOT NULL DEFAULT TRUE,
    success_rate         DOUBLE PRECISION NOT NULL DEFAULT 100,
    total_requests       BIGINT NOT NULL DEFAULT 0,
    successful_requests  BIGINT NOT NULL DEFAULT 0,
    failed_requests      BIGINT NOT NULL DEFAULT 0,
    avg_response_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_used_at         TIMESTAMPTZ,
    last_error_message   TEXT,
    health_status        VARCHAR(10) NOT NULL DEFAULT 'unknown',
    UNIQUE (host, port)
)`); err != nil {
		return err
	}

	indexes := []string{
		// eligibility scan for snapshot loads (WHERE active AND success_rate >= $1)
		`CREATE INDEX IF NOT EXISTS idx_relays_eligible ON relays(success_rate) WHERE active = TRUE`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// health_status constraint; ignore error when it already exists
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_relay_health_status'
    ) THEN
        ALTER TABLE relays ADD CONSTRAINT chk_relay_health_status
        CHECK (health_status IN ('unknown', 'passed', 'failed'));
    END IF;
END $$;
`)

	return nil
}

// MigrateDown rolls back the relay schema.
// Use with caution: this deletes all accumulated health statistics.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_relays_eligible`,
		`DROP TABLE IF EXISTS relays CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
