package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
	"github.com/jungeol66104/firework-web-sub001/internal/service"
)

type generateRequest struct {
	UserID string          `json:"user_id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Interviews dispatches /v1/interviews/{id}/qa and /v1/interviews/{id}/versions.
func (api *API) Interviews(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/interviews/")
	interviewID, action, ok := strings.Cut(rest, "/")
	interviewID = strings.TrimSpace(interviewID)
	if !ok || interviewID == "" {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	switch action {
	case "qa":
		api.createQA(w, r, interviewID)
	case "versions":
		api.listVersions(w, r, interviewID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	}
}

func (api *API) createQA(w http.ResponseWriter, r *http.Request, interviewID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request generateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	request.UserID = strings.TrimSpace(request.UserID)
	if request.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	kind := domain.JobKind(strings.TrimSpace(request.Type))
	job, err := api.jobsService.Request(r.Context(), request.UserID, interviewID, kind, request.Data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownJobKind):
			writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown generation type")
		case errors.Is(err, service.ErrInsufficientTokens):
			writeError(w, r, http.StatusPaymentRequired, "insufficient_tokens", "token balance is too low for this generation")
		case errors.Is(err, service.ErrInvalidJobInput):
			writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid generation input")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to create generation job")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
		"kind":   job.Kind,
	})
}

func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	jobID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/jobs/"))
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	job, err := api.jobsService.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
		return
	}

	response := map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"kind":       job.Kind,
		"updated_at": job.UpdatedAt,
	}
	if len(job.Result) > 0 {
		response["result"] = jsonRawOrFallback(job.Result)
	}
	if strings.TrimSpace(job.ErrorMessage) != "" {
		response["error"] = map[string]any{
			"code":    "processing_error",
			"message": job.ErrorMessage,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

type cancelRequest struct {
	JobID string `json:"job_id"`
}

func (api *API) CancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request cancelRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	request.JobID = strings.TrimSpace(request.JobID)
	if request.JobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	if err := api.jobsService.Cancel(r.Context(), request.JobID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, service.ErrJobTerminal):
			writeError(w, r, http.StatusConflict, "job_terminal", "job already finished")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to cancel job")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    request.JobID,
		"cancelled": true,
	})
}

func jsonRawOrFallback(value []byte) any {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err == nil {
		return decoded
	}
	return string(value)
}
