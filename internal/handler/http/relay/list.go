package relay

import (
	"net/http"

	"relaypool/internal/handler/http/respond"
	"relaypool/internal/repository"
)

type ListHandler struct{ Repo repository.RelayRepository }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relays, err := h.Repo.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(relays))
	for _, relay := range relays {
		dtos = append(dtos, toDTO(relay))
	}
	respond.JSON(w, http.StatusOK, dtos)
}
