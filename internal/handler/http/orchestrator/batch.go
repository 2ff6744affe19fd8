package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"relaypool/internal/handler/http/respond"
	"relaypool/internal/usecase/scrape"
)

// maxBatchTargets bounds one API batch submission.
const maxBatchTargets = 100

type BatchHandler struct{ Svc *scrape.Service }

type batchTargetResponse struct {
	Target     string `json:"target"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type batchResponse struct {
	Total      int                   `json:"total"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	DurationMs int64                 `json:"duration_ms"`
	Results    []batchTargetResponse `json:"results"`
}

func (h BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs        []string `json:"urls"`
		Concurrency int      `json:"concurrency"`
		BaseDelayMs int64    `json:"base_delay_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.URLs) == 0 {
		respond.SafeError(w, http.StatusBadRequest, errors.New("urls required"))
		return
	}
	if len(req.URLs) > maxBatchTargets {
		respond.SafeError(w, http.StatusBadRequest, errors.New("too many urls, must be 100 or fewer"))
		return
	}

	cfg := scrape.DefaultBatchConfig()
	if req.Concurrency > 0 {
		cfg.Concurrency = req.Concurrency
	}
	if req.BaseDelayMs > 0 {
		cfg.BaseDelay = time.Duration(req.BaseDelayMs) * time.Millisecond
	}

	summary := h.Svc.RunBatch(r.Context(), req.URLs, cfg)

	resp := batchResponse{
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		DurationMs: summary.Duration.Milliseconds(),
		Results:    make([]batchTargetResponse, 0, len(summary.Results)),
	}
	for _, tr := range summary.Results {
		item := batchTargetResponse{
			Target:     tr.Target,
			OK:         tr.Err == nil,
			DurationMs: tr.Duration.Milliseconds(),
		}
		if tr.Result != nil {
			item.StatusCode = tr.Result.StatusCode
		}
		if tr.Err != nil {
			item.Error = tr.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}
	respond.JSON(w, http.StatusOK, resp)
}
