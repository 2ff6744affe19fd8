package orchestrator_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaypool/internal/domain/entity"
	"relaypool/internal/handler/http/orchestrator"
	"relaypool/internal/registry"
	"relaypool/internal/repository"
	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/resilience/retry"
	"relaypool/internal/usecase/scrape"
)

type memRepo struct {
	mu     sync.Mutex
	relays map[string]*entity.Relay
}

func newMemRepo(relays ...*entity.Relay) *memRepo {
	repo := &memRepo{relays: make(map[string]*entity.Relay)}
	for _, r := range relays {
		repo.relays[r.ID] = r
	}
	return repo
}

func (m *memRepo) Get(_ context.Context, id string) (*entity.Relay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	relay, ok := m.relays[id]
	if !ok {
		return nil, entity.ErrRelayNotFound
	}
	clone := *relay
	return &clone, nil
}

func (m *memRepo) List(_ context.Context) ([]*entity.Relay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Relay, 0, len(m.relays))
	for _, r := range m.relays {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memRepo) ListEligible(_ context.Context, minSuccessRate float64) ([]*entity.Relay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Relay, 0, len(m.relays))
	for _, r := range m.relays {
		if r.Active && r.SuccessRate >= minSuccessRate {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, relay *entity.Relay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relays[relay.ID] = relay
	return nil
}

func (m *memRepo) UpdateHealth(_ context.Context, relay *entity.Relay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relays[relay.ID]; !ok {
		return entity.ErrRelayNotFound
	}
	clone := *relay
	m.relays[relay.ID] = &clone
	return nil
}

func (m *memRepo) Counts(_ context.Context) (repository.RelayCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := repository.RelayCounts{}
	for _, r := range m.relays {
		counts.Total++
		if r.Active {
			counts.Active++
		}
	}
	return counts, nil
}

// urlFetcher fails any target whose URL contains "fail" with a permanent
// error and succeeds on everything else.
type urlFetcher struct{}

func (urlFetcher) Fetch(_ context.Context, target string, _ *entity.Relay) (*scrape.Result, error) {
	if strings.Contains(target, "fail") {
		return nil, &retry.FetchError{Class: retry.ClassPermanent, StatusCode: 403, Msg: "Forbidden"}
	}
	return &scrape.Result{StatusCode: 200, Body: []byte("<html>ok</html>"), FinalURL: target}, nil
}

type harness struct {
	bank *circuitbreaker.Bank
	svc  *scrape.Service
	mux  *http.ServeMux
}

func newHarness(relays ...*entity.Relay) *harness {
	clk := clock.New()
	reg := registry.New(newMemRepo(relays...), clk, registry.DefaultConfig(), registry.DefaultFeedbackConfig())
	sel := registry.NewSelector(registry.DefaultSelectorConfig(), clk, nil)
	bank := circuitbreaker.NewBank(circuitbreaker.Config{
		FailureThreshold:    100,
		OpenTimeout:         time.Minute,
		HalfOpenMaxRequests: 1,
	})

	cfg := scrape.DefaultConfig()
	cfg.Backoff.BaseDelay = time.Millisecond
	cfg.Backoff.MaxDelay = 2 * time.Millisecond
	cfg.Backoff.Jitter = 0
	svc := scrape.NewService(reg, sel, bank, urlFetcher{}, cfg, clk, nil)

	mux := http.NewServeMux()
	orchestrator.Register(mux, svc, bank)
	return &harness{bank: bank, svc: svc, mux: mux}
}

func activeRelay(id string) *entity.Relay {
	return &entity.Relay{
		ID: id, Host: "203.0.113.5", Port: 3128,
		Active: true, SuccessRate: 80, HealthStatus: entity.HealthPassed,
	}
}

func post(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestFetch_Success(t *testing.T) {
	h := newHarness(activeRelay("r1"))

	rec := post(h.mux, "/fetch", `{"url":"https://example.com/page"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		StatusCode    int    `json:"status_code"`
		FinalURL      string `json:"final_url"`
		ContentLength int    `json:"content_length"`
		Body          string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://example.com/page", resp.FinalURL)
	assert.Equal(t, len("<html>ok</html>"), resp.ContentLength)
	assert.Contains(t, resp.Body, "ok")
}

func TestFetch_PermanentFailure(t *testing.T) {
	h := newHarness(activeRelay("r1"))

	rec := post(h.mux, "/fetch", `{"url":"https://example.com/fail"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error    string `json:"error"`
		Class    string `json:"class"`
		Attempts int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "permanent", resp.Class)
	assert.Equal(t, 1, resp.Attempts)
}

func TestFetch_AllRoutesOpen(t *testing.T) {
	h := newHarness()
	for i := 0; i < 100; i++ {
		h.bank.RecordFailure(entity.DirectRoute)
	}

	rec := post(h.mux, "/fetch", `{"url":"https://example.com/page"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error    string `json:"error"`
		Class    string `json:"class"`
		Attempts int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Class)
	assert.Equal(t, 0, resp.Attempts)
}

func TestFetch_MissingURL(t *testing.T) {
	h := newHarness(activeRelay("r1"))

	assert.Equal(t, http.StatusBadRequest, post(h.mux, "/fetch", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.mux, "/fetch", `not json`).Code)
}

func TestBatch_MixedOutcomes(t *testing.T) {
	h := newHarness(activeRelay("r1"))

	body := `{"urls":["https://a.example/ok","https://a.example/fail","https://a.example/ok2"],"concurrency":2,"base_delay_ms":1}`
	rec := post(h.mux, "/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
		Results   []struct {
			Target     string `json:"target"`
			OK         bool   `json:"ok"`
			StatusCode int    `json:"status_code"`
			Error      string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "https://a.example/ok", resp.Results[0].Target)
	assert.True(t, resp.Results[0].OK)
	assert.False(t, resp.Results[1].OK)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestBatch_Validation(t *testing.T) {
	h := newHarness(activeRelay("r1"))

	assert.Equal(t, http.StatusBadRequest, post(h.mux, "/batch", `{"urls":[]}`).Code)

	urls := make([]string, 101)
	for i := range urls {
		urls[i] = "https://a.example/ok"
	}
	payload, err := json.Marshal(map[string]any{"urls": urls})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, post(h.mux, "/batch", string(payload)).Code)
}

func TestListBreakers(t *testing.T) {
	h := newHarness(activeRelay("r1"))
	_, err := h.bank.Allow("203.0.113.5:3128")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/breakers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var states []struct {
		Route string `json:"route"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "203.0.113.5:3128", states[0].Route)
	assert.Equal(t, "closed", states[0].State)
}

func TestResetBreakers(t *testing.T) {
	h := newHarness(activeRelay("r1"))
	h.bank.RecordFailure("203.0.113.5:3128")
	h.bank.RecordFailure("direct")

	rec := post(h.mux, "/breakers/reset", `{"routes":["direct"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reset []string `json:"reset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"direct"}, resp.Reset)

	// An empty body resets every tracked route.
	rec = post(h.mux, "/breakers/reset", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Reset, 2)
}

func TestPoolHealth(t *testing.T) {
	h := newHarness(activeRelay("r1"))
	_, err := h.bank.Allow("direct")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pool/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalRelays   int64  `json:"total_relays"`
		ActiveRelays  int64  `json:"active_relays"`
		TrackedRoutes int    `json:"tracked_routes"`
		OpenBreakers  int    `json:"open_breakers"`
		CacheState    string `json:"cache_state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalRelays)
	assert.Equal(t, int64(1), resp.ActiveRelays)
	assert.Equal(t, 1, resp.TrackedRoutes)
	assert.Equal(t, 0, resp.OpenBreakers)
	assert.Equal(t, "empty", resp.CacheState)
}
