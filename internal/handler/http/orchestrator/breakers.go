package orchestrator

import (
	"encoding/json"
	"net/http"

	"relaypool/internal/handler/http/respond"
	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/usecase/scrape"
)

type BreakersHandler struct{ Bank *circuitbreaker.Bank }

type breakerState struct {
	Route string `json:"route"`
	State string `json:"state"`
}

func (h BreakersHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	routes := h.Bank.Routes()
	states := make([]breakerState, 0, len(routes))
	for _, route := range routes {
		states = append(states, breakerState{
			Route: route,
			State: h.Bank.State(route).String(),
		})
	}
	respond.JSON(w, http.StatusOK, states)
}

type ResetBreakersHandler struct{ Svc *scrape.Service }

func (h ResetBreakersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Routes []string `json:"routes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
	}

	reset := h.Svc.ResetCircuitBreakers(req.Routes)
	respond.JSON(w, http.StatusOK, map[string]any{"reset": reset})
}
