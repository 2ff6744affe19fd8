// Package orchestrator exposes the request orchestration operations over the
// admin API: one-off fetches, batches, breaker management, and pool health.
package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"

	"relaypool/internal/domain/entity"
	"relaypool/internal/handler/http/respond"
	"relaypool/internal/usecase/scrape"
)

// maxInlineBody caps the response body echoed back to API callers.
const maxInlineBody = 256 * 1024

type FetchHandler struct{ Svc *scrape.Service }

type fetchResponse struct {
	StatusCode    int    `json:"status_code"`
	FinalURL      string `json:"final_url"`
	ContentLength int    `json:"content_length"`
	Body          string `json:"body,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}

type failureResponse struct {
	Error    string `json:"error"`
	Class    string `json:"class,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

func (h FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url required"))
		return
	}

	result, err := h.Svc.RunWithRetry(r.Context(), req.URL)
	if err != nil {
		writeFetchFailure(w, err)
		return
	}

	resp := fetchResponse{
		StatusCode:    result.StatusCode,
		FinalURL:      result.FinalURL,
		ContentLength: len(result.Body),
	}
	if len(result.Body) <= maxInlineBody {
		resp.Body = string(result.Body)
	} else {
		resp.Body = string(result.Body[:maxInlineBody])
		resp.Truncated = true
	}
	respond.JSON(w, http.StatusOK, resp)
}

// writeFetchFailure maps a terminal retry failure to an API status.
func writeFetchFailure(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, entity.ErrStorageUnavailable),
		errors.Is(err, scrape.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, scrape.ErrPermanentFailure):
		status = http.StatusUnprocessableEntity
	}

	resp := failureResponse{Error: "fetch failed"}
	var retryErr *scrape.RetryError
	if errors.As(err, &retryErr) {
		resp.Class = string(retryErr.Class)
		resp.Attempts = retryErr.Attempts
	}
	respond.JSON(w, status, resp)
}
