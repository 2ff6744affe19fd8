package orchestrator

import (
	"net/http"

	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/usecase/scrape"
)

// Register wires the orchestration handlers onto the mux.
func Register(mux *http.ServeMux, svc *scrape.Service, bank *circuitbreaker.Bank) {
	mux.Handle("POST /fetch", FetchHandler{svc})
	mux.Handle("POST /batch", BatchHandler{svc})
	mux.Handle("GET /breakers", BreakersHandler{bank})
	mux.Handle("POST /breakers/reset", ResetBreakersHandler{svc})
	mux.Handle("GET /pool/health", HealthHandler{svc})
}
