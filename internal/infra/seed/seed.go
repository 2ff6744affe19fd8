// Package seed provisions relays from a YAML file at startup. Seeding is
// idempotent: relays already present in storage are left untouched.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"relaypool/internal/domain/entity"
	"relaypool/internal/repository"
)

// initialSuccessRate is the neutral starting score for a freshly seeded
// relay: eligible for selection, but not favored over proven relays.
const initialSuccessRate = 50

// File is the shape of the relay seed file.
type File struct {
	Relays []Entry `yaml:"relays"`
}

// Entry is one relay definition in the seed file.
type Entry struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Load parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed file contents.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	return &file, nil
}

// Apply inserts every seed entry that is not already stored. It returns the
// number of relays created. Invalid entries fail the whole apply so a broken
// seed file is caught at startup rather than half-applied silently.
func Apply(ctx context.Context, repo repository.RelayRepository, file *File) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("Apply: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, relay := range existing {
		known[relay.Addr()] = struct{}{}
	}

	created := 0
	for _, entry := range file.Relays {
		relay := &entity.Relay{
			ID:           uuid.NewString(),
			Host:         entry.Host,
			Port:         entry.Port,
			Username:     entry.Username,
			Password:     entry.Password,
			Active:       true,
			SuccessRate:  initialSuccessRate,
			HealthStatus: entity.HealthUnknown,
		}
		if err := relay.Validate(); err != nil {
			return created, fmt.Errorf("Apply: seed entry %s:%d: %w", entry.Host, entry.Port, err)
		}
		if _, ok := known[relay.Addr()]; ok {
			continue
		}
		if err := repo.Create(ctx, relay); err != nil {
			return created, fmt.Errorf("Apply: %w", err)
		}
		created++
	}

	slog.Info("relay seed applied",
		slog.Int("entries", len(file.Relays)),
		slog.Int("created", created))
	return created, nil
}
