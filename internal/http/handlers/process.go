package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/quality"
	"github.com/jungeol66104/firework-web-sub001/internal/service"
	"github.com/jungeol66104/firework-web-sub001/internal/worker"
)

// Process handles one broker delivery for the given kind. The kind is fixed
// per webhook route; a payload claiming a different kind is rejected so a
// replayed body cannot switch processing paths.
func (api *API) Process(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}

		var message domain.QueueMessage
		if err := decodeJSON(r, &message); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
			return
		}
		if message.Kind != kind {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "payload kind does not match webhook route")
			return
		}
		if strings.TrimSpace(message.JobID) == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
			return
		}

		if err := api.processor.ProcessMessage(r.Context(), message); err != nil {
			if terminalProcessingError(err) {
				// The job is already marked failed and any charge refunded.
				// Returning 2xx stops broker redelivery.
				writeJSON(w, http.StatusOK, map[string]any{"job_id": message.JobID, "processed": false})
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "job processing failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"job_id": message.JobID, "processed": true})
	}
}

// terminalProcessingError reports whether the processor has already moved
// the job to failed and refunded its charge. Redelivering such a message
// would only hit the claim guard.
func terminalProcessingError(err error) bool {
	return errors.Is(err, worker.ErrInsufficientTokens) ||
		errors.Is(err, worker.ErrMissingInput) ||
		errors.Is(err, worker.ErrVersionNotSaved) ||
		errors.Is(err, service.ErrInvalidJobInput) ||
		errors.Is(err, quality.ErrInvalidShape)
}
