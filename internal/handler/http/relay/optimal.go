package relay

import (
	"net/http"

	"relaypool/internal/handler/http/respond"
	"relaypool/internal/usecase/scrape"
)

type OptimalHandler struct{ Svc *scrape.Service }

// optimalResponse reports either the picked relay or the reason the request
// should go out directly.
type optimalResponse struct {
	Relay     *DTO   `json:"relay"`
	Reason    string `json:"reason,omitempty"`
	FromCache bool   `json:"from_cache"`
}

func (h OptimalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	decision, err := h.Svc.GetOptimalRelay(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := optimalResponse{Reason: decision.Reason, FromCache: decision.FromCache}
	if decision.Relay != nil {
		dto := toDTO(decision.Relay)
		resp.Relay = &dto
	}
	respond.JSON(w, http.StatusOK, resp)
}
