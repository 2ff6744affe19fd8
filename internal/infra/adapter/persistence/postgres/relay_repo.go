package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"relaypool/internal/domain/entity"
	"relaypool/internal/repository"
)

type RelayRepo struct{ db *sql.DB }

func NewRelayRepo(db *sql.DB) repository.RelayRepository {
	return &RelayRepo{db: db}
}

const relayColumns = `id, host, port, username, password, active, success_rate,
total_requests, successful_requests, failed_requests, avg_response_time_ms,
last_used_at, last_error_message, health_status`

// scanRelay is a helper function to scan a relay row.
func scanRelay(rows *sql.Rows) (*entity.Relay, error) {
	var relay entity.Relay
	var username, password sql.NullString
	var status sql.NullString
	if err := rows.Scan(
		&relay.ID, &relay.Host, &relay.Port, &username, &password,
		&relay.Active, &relay.SuccessRate,
		&relay.TotalRequests, &relay.SuccessfulRequests, &relay.FailedRequests,
		&relay.AvgResponseTimeMs, &relay.LastUsedAt, &relay.LastErrorMessage,
		&status,
	); err != nil {
		return nil, err
	}
	relay.Username = username.String
	relay.Password = password.String
	relay.HealthStatus = entity.HealthUnknown
	if status.Valid && status.String != "" {
		relay.HealthStatus = entity.HealthStatus(status.String)
	}
	return &relay, nil
}

func (repo *RelayRepo) Get(ctx context.Context, id string) (*entity.Relay, error) {
	const query = `
SELECT ` + relayColumns + `
FROM relays
WHERE id = $1
LIMIT 1`
	var relay entity.Relay
	var username, password, status sql.NullString
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&relay.ID, &relay.Host, &relay.Port, &username, &password,
		&relay.Active, &relay.SuccessRate,
		&relay.TotalRequests, &relay.SuccessfulRequests, &relay.FailedRequests,
		&relay.AvgResponseTimeMs, &relay.LastUsedAt, &relay.LastErrorMessage,
		&status,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get: %w", entity.ErrRelayNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	relay.Username = username.String
	relay.Password = password.String
	relay.HealthStatus = entity.HealthUnknown
	if status.Valid && status.String != "" {
		relay.HealthStatus = entity.HealthStatus(status.String)
	}
	return &relay, nil
}

func (repo *RelayRepo) List(ctx context.Context) ([]*entity.Relay, error) {
	const query = `
SELECT ` + relayColumns + `
FROM relays
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	relays := make([]*entity.Relay, 0, 32)
	for rows.Next() {
		relay, err := scanRelay(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		relays = append(relays, relay)
	}
	return relays, rows.Err()
}

func (repo *RelayRepo) ListEligible(ctx context.Context, minSuccessRate float64) ([]*entity.Relay, error) {
	const query = `
SELECT ` + relayColumns + `
FROM relays
WHERE active = TRUE
AND   success_rate >= $1
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, minSuccessRate)
	if err != nil {
		return nil, fmt.Errorf("ListEligible: %w", err)
	}
	defer func() { _ = rows.Close() }()

	eligible := make([]*entity.Relay, 0, 32)
	for rows.Next() {
		relay, err := scanRelay(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEligible: %w", err)
		}
		eligible = append(eligible, relay)
	}
	return eligible, rows.Err()
}

func (repo *RelayRepo) Create(ctx context.Context, relay *entity.Relay) error {
	if err := relay.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if relay.HealthStatus == "" {
		relay.HealthStatus = entity.HealthUnknown
	}

	const query = `
INSERT INTO relays (id, host, port, username, password, active, success_rate,
                    total_requests, successful_requests, failed_requests,
                    avg_response_time_ms, last_used_at, last_error_message, health_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query,
		relay.ID, relay.Host, relay.Port,
		nullable(relay.Username), nullable(relay.Password),
		relay.Active, relay.SuccessRate,
		relay.TotalRequests, relay.SuccessfulRequests, relay.FailedRequests,
		relay.AvgResponseTimeMs, relay.LastUsedAt, relay.LastErrorMessage,
		string(relay.HealthStatus),
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *RelayRepo) UpdateHealth(ctx context.Context, relay *entity.Relay) error {
	const query = `
UPDATE relays SET
       active               = $1,
       success_rate         = $2,
       total_requests       = $3,
       successful_requests  = $4,
       failed_requests      = $5,
       avg_response_time_ms = $6,
       last_used_at         = $7,
       last_error_message   = $8,
       health_status        = $9
WHERE id = $10`
	res, err := repo.db.ExecContext(ctx, query,
		relay.Active, relay.SuccessRate,
		relay.TotalRequests, relay.SuccessfulRequests, relay.FailedRequests,
		relay.AvgResponseTimeMs, relay.LastUsedAt, relay.LastErrorMessage,
		string(relay.HealthStatus), relay.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateHealth: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateHealth: %w", entity.ErrRelayNotFound)
	}
	return nil
}

func (repo *RelayRepo) Counts(ctx context.Context) (repository.RelayCounts, error) {
	const query = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE active = TRUE)
FROM relays`
	var counts repository.RelayCounts
	if err := repo.db.QueryRowContext(ctx, query).Scan(&counts.Total, &counts.Active); err != nil {
		return repository.RelayCounts{}, fmt.Errorf("Counts: %w", err)
	}
	return counts, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
