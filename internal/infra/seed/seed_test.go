package seed_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaypool/internal/domain/entity"
	"relaypool/internal/infra/seed"
	"relaypool/internal/repository"
)

type captureRepo struct {
	mu      sync.Mutex
	relays  []*entity.Relay
	listErr error
}

func (c *captureRepo) Get(_ context.Context, id string) (*entity.Relay, error) {
	return nil, entity.ErrRelayNotFound
}

func (c *captureRepo) List(_ context.Context) ([]*entity.Relay, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.relays, nil
}

func (c *captureRepo) ListEligible(_ context.Context, _ float64) ([]*entity.Relay, error) {
	return c.relays, nil
}

func (c *captureRepo) Create(_ context.Context, relay *entity.Relay) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relays = append(c.relays, relay)
	return nil
}

func (c *captureRepo) UpdateHealth(_ context.Context, _ *entity.Relay) error { return nil }

func (c *captureRepo) Counts(_ context.Context) (repository.RelayCounts, error) {
	return repository.RelayCounts{}, nil
}

const sampleSeed = `
relays:
  - host: 198.51.100.7
    port: 3128
    username: scraper
    password: hunter2
  - host: 198.51.100.8
    port: 8080
`

func TestParse(t *testing.T) {
	file, err := seed.Parse([]byte(sampleSeed))
	require.NoError(t, err)
	require.Len(t, file.Relays, 2)
	assert.Equal(t, "198.51.100.7", file.Relays[0].Host)
	assert.Equal(t, 3128, file.Relays[0].Port)
	assert.Equal(t, "scraper", file.Relays[0].Username)
	assert.Empty(t, file.Relays[1].Username)
}

func TestParse_Invalid(t *testing.T) {
	_, err := seed.Parse([]byte("relays: {not a list"))
	assert.Error(t, err)
}

func TestApply_CreatesNewRelays(t *testing.T) {
	file, err := seed.Parse([]byte(sampleSeed))
	require.NoError(t, err)

	repo := &captureRepo{}
	created, err := seed.Apply(context.Background(), repo, file)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	require.Len(t, repo.relays, 2)
	first := repo.relays[0]
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.Active)
	assert.Equal(t, 50.0, first.SuccessRate)
	assert.Equal(t, entity.HealthUnknown, first.HealthStatus)
}

func TestApply_SkipsExisting(t *testing.T) {
	file, err := seed.Parse([]byte(sampleSeed))
	require.NoError(t, err)

	repo := &captureRepo{relays: []*entity.Relay{
		{ID: "existing", Host: "198.51.100.7", Port: 3128, Active: true},
	}}

	created, err := seed.Apply(context.Background(), repo, file)
	require.NoError(t, err)
	assert.Equal(t, 1, created, "only the unseen relay is created")
}

func TestApply_RejectsInvalidEntry(t *testing.T) {
	file := &seed.File{Relays: []seed.Entry{{Host: "", Port: 3128}}}

	_, err := seed.Apply(context.Background(), &captureRepo{}, file)
	assert.Error(t, err)
}
