package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"relaypool/internal/domain/entity"
	"relaypool/internal/handler/http/respond"
	"relaypool/internal/registry"
	"relaypool/internal/usecase/scrape"
)

type OutcomeHandler struct{ Svc *scrape.Service }

func (h OutcomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Success        bool   `json:"success"`
		ErrorMessage   string `json:"error_message"`
		ResponseTimeMs int64  `json:"response_time_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.Svc.ReportOutcome(r.Context(), r.PathValue("id"), registry.Outcome{
		Success:      req.Success,
		ErrorMessage: req.ErrorMessage,
		ResponseTime: time.Duration(req.ResponseTimeMs) * time.Millisecond,
	})
	if err != nil {
		if errors.Is(err, entity.ErrRelayNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(updated))
}
