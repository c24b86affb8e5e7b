package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
)

func (api *API) listVersions(w http.ResponseWriter, r *http.Request, interviewID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	versions, err := api.versions.ListVersions(r.Context(), interviewID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load versions")
		return
	}

	includeContent := r.URL.Query().Get("include_content") == "true"
	items := make([]map[string]any, 0, len(versions))
	for _, version := range versions {
		items = append(items, versionResponse(version, includeContent))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interview_id": interviewID,
		"versions":     items,
	})
}

// Versions dispatches /v1/versions/{id} and /v1/versions/{id}/promote.
func (api *API) Versions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/versions/")
	versionID, action, _ := strings.Cut(rest, "/")
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	switch action {
	case "":
		api.getVersion(w, r, versionID)
	case "promote":
		api.promoteVersion(w, r, versionID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	}
}

func (api *API) getVersion(w http.ResponseWriter, r *http.Request, versionID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	version, err := api.versions.GetVersion(r.Context(), versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "version not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load version")
		return
	}
	writeJSON(w, http.StatusOK, versionResponse(version, true))
}

func (api *API) promoteVersion(w http.ResponseWriter, r *http.Request, versionID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	if err := api.versions.SetDefault(r.Context(), versionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "version not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to promote version")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version_id": versionID,
		"is_default": true,
	})
}

func versionResponse(version *domain.QAVersion, includeContent bool) map[string]any {
	response := map[string]any{
		"version_id":   version.ID,
		"interview_id": version.InterviewID,
		"name":         version.Name,
		"kind":         version.Kind,
		"is_default":   version.IsDefault,
		"target_items": version.TargetItems,
		"tokens_used":  version.TokensUsed,
		"created_at":   version.CreatedAt,
	}
	if version.ParentID != nil {
		response["parent_id"] = *version.ParentID
	}
	if includeContent {
		response["questions"] = version.Questions
		response["answers"] = version.Answers
	}
	return response
}
