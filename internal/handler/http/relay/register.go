package relay

import (
	"net/http"

	"relaypool/internal/registry"
	"relaypool/internal/repository"
	"relaypool/internal/usecase/scrape"
)

// Register wires the relay resource handlers onto the mux.
func Register(mux *http.ServeMux, repo repository.RelayRepository, reg *registry.Registry, svc *scrape.Service) {
	mux.Handle("GET /relays", ListHandler{repo})
	mux.Handle("GET /relays/optimal", OptimalHandler{svc})
	mux.Handle("GET /relays/{id}", GetHandler{repo})
	mux.Handle("POST /relays", CreateHandler{Repo: repo, Registry: reg})
	mux.Handle("POST /relays/{id}/outcome", OutcomeHandler{svc})
}
