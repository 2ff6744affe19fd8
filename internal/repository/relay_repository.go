package repository

import (
	"context"

	"relaypool/internal/domain/entity"
)

// RelayCounts is an aggregate view over the relay table used for health
// reporting and selection diagnostics.
type RelayCounts struct {
	Total  int64
	Active int64
}

type RelayRepository interface {
	Get(ctx context.Context, id string) (*entity.Relay, error)
	List(ctx context.Context) ([]*entity.Relay, error)
	// ListEligible returns relays with active = true and a success rate of at
	// least minSuccessRate, the candidate set for weighted selection.
	ListEligible(ctx context.Context, minSuccessRate float64) ([]*entity.Relay, error)
	Create(ctx context.Context, relay *entity.Relay) error
	// UpdateHealth persists the mutable health fields of a relay (counters,
	// success rate, activity flag, timestamps, last error).
	UpdateHealth(ctx context.Context, relay *entity.Relay) error
	Counts(ctx context.Context) (RelayCounts, error)
}
