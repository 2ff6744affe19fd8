package relay

import (
	"errors"
	"net/http"

	"relaypool/internal/domain/entity"
	"relaypool/internal/handler/http/respond"
	"relaypool/internal/repository"
)

type GetHandler struct{ Repo repository.RelayRepository }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relay, err := h.Repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, entity.ErrRelayNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(relay))
}
