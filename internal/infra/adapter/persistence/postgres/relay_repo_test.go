package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"relaypool/internal/domain/entity"
	"relaypool/internal/infra/adapter/persistence/postgres"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

var relayCols = []string{
	"id", "host", "port", "username", "password", "active", "success_rate",
	"total_requests", "successful_requests", "failed_requests",
	"avg_response_time_ms", "last_used_at", "last_error_message", "health_status",
}

func row(r *entity.Relay) *sqlmock.Rows {
	return sqlmock.NewRows(relayCols).AddRow(
		r.ID, r.Host, r.Port, r.Username, r.Password, r.Active, r.SuccessRate,
		r.TotalRequests, r.SuccessfulRequests, r.FailedRequests,
		r.AvgResponseTimeMs, r.LastUsedAt, r.LastErrorMessage, string(r.HealthStatus),
	)
}

/* ──────────────────────────────── 1. Get ──────────────────────────────── */

func TestRelayRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	want := &entity.Relay{
		ID: "relay-1", Host: "10.0.0.9", Port: 3128, Username: "u", Password: "p",
		Active: true, SuccessRate: 88.5, TotalRequests: 40,
		SuccessfulRequests: 35, FailedRequests: 5, AvgResponseTimeMs: 420,
		LastUsedAt: &now, HealthStatus: entity.HealthPassed,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs("relay-1").
		WillReturnRows(row(want))

	repo := postgres.NewRelayRepo(db)
	got, err := repo.Get(context.Background(), "relay-1")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRelayRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(relayCols))

	repo := postgres.NewRelayRepo(db)
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, entity.ErrRelayNotFound) {
		t.Fatalf("want ErrRelayNotFound, got %v", err)
	}
}

/* ──────────────────────────────── 2. ListEligible ──────────────────────────────── */

func TestRelayRepo_ListEligible(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM relays`).
		WithArgs(25.0).
		WillReturnRows(row(&entity.Relay{
			ID: "relay-1", Host: "10.0.0.9", Port: 3128,
			Active: true, SuccessRate: 90, HealthStatus: entity.HealthPassed,
		}))

	repo := postgres.NewRelayRepo(db)
	got, err := repo.ListEligible(context.Background(), 25.0)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListEligible err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────────── 3. Create ──────────────────────────────── */

func TestRelayRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO relays`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewRelayRepo(db)
	err := repo.Create(context.Background(), &entity.Relay{
		ID: "relay-1", Host: "10.0.0.9", Port: 3128, Active: true, SuccessRate: 100,
	})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────────── 4. UpdateHealth ──────────────────────────────── */

func TestRelayRepo_UpdateHealth(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE relays SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewRelayRepo(db)
	err := repo.UpdateHealth(context.Background(), &entity.Relay{
		ID: "relay-1", Host: "10.0.0.9", Port: 3128,
		Active: true, SuccessRate: 91.0, HealthStatus: entity.HealthPassed,
	})
	if err != nil {
		t.Fatalf("UpdateHealth err=%v", err)
	}
}

func TestRelayRepo_UpdateHealth_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE relays SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewRelayRepo(db)
	err := repo.UpdateHealth(context.Background(), &entity.Relay{
		ID: "ghost", Host: "10.0.0.9", Port: 3128,
	})
	if !errors.Is(err, entity.ErrRelayNotFound) {
		t.Fatalf("want ErrRelayNotFound, got %v", err)
	}
}

/* ──────────────────────────────── 5. Counts ──────────────────────────────── */

func TestRelayRepo_Counts(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM relays`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(7, 5))

	repo := postgres.NewRelayRepo(db)
	counts, err := repo.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts err=%v", err)
	}
	if counts.Total != 7 || counts.Active != 5 {
		t.Fatalf("Counts = %+v", counts)
	}
}
