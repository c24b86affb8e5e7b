package handlers

import (
	"net/http"
	"strings"
)

func (api *API) TokenBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	balance, err := api.tokens.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": balance,
	})
}

type creditRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

func (api *API) TokenCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request creditRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	request.UserID = strings.TrimSpace(request.UserID)
	if request.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	if request.Amount <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "amount must be positive")
		return
	}

	if err := api.tokens.Credit(r.Context(), request.UserID, request.Amount); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to credit tokens")
		return
	}

	balance, err := api.tokens.Balance(r.Context(), request.UserID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": request.UserID,
		"balance": balance,
	})
}
