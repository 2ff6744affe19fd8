package orchestrator

import (
	"net/http"

	"relaypool/internal/handler/http/respond"
	"relaypool/internal/usecase/scrape"
)

type HealthHandler struct{ Svc *scrape.Service }

type healthResponse struct {
	TotalRelays   int64  `json:"total_relays"`
	ActiveRelays  int64  `json:"active_relays"`
	TrackedRoutes int    `json:"tracked_routes"`
	OpenBreakers  int    `json:"open_breakers"`
	CacheAgeMs    int64  `json:"cache_age_ms"`
	CacheState    string `json:"cache_state"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hm, err := h.Svc.GetHealthMetrics(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := healthResponse{
		TotalRelays:   hm.TotalRelays,
		ActiveRelays:  hm.ActiveRelays,
		TrackedRoutes: hm.TrackedRoutes,
		OpenBreakers:  hm.OpenBreakers,
		CacheState:    "empty",
	}
	if hm.CacheFresh {
		resp.CacheAgeMs = hm.CacheAge.Milliseconds()
		resp.CacheState = "cached"
	}
	respond.JSON(w, http.StatusOK, resp)
}
