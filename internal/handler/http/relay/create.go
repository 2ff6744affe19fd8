package relay

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"relaypool/internal/domain/entity"
	"relaypool/internal/handler/http/respond"
	"relaypool/internal/registry"
	"relaypool/internal/repository"
)

// newRelaySuccessRate matches the seed loader's neutral starting score.
const newRelaySuccessRate = 50

type CreateHandler struct {
	Repo     repository.RelayRepository
	Registry *registry.Registry
}

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	relay := &entity.Relay{
		ID:           uuid.NewString(),
		Host:         req.Host,
		Port:         req.Port,
		Username:     req.Username,
		Password:     req.Password,
		Active:       true,
		SuccessRate:  newRelaySuccessRate,
		HealthStatus: entity.HealthUnknown,
	}
	if err := relay.Validate(); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Repo.Create(r.Context(), relay); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	h.Registry.Invalidate()

	respond.JSON(w, http.StatusCreated, toDTO(relay))
}
