package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"qna/internal/docstore"
	"qna/internal/identity"
)

type createContributorRequest struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// contributorsCollectionHandler manages the contributor registry. The raw
// API key is returned exactly once, in the creation response; only its hash
// is stored.
func contributorsCollectionHandler(store *docstore.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			contributors, err := store.ListContributors(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to list contributors")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"contributors": contributors,
				"total":        len(contributors),
			})
		case http.MethodPost:
			var req createContributorRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			if strings.TrimSpace(req.UserName) == "" {
				writeError(w, http.StatusBadRequest, "userName is required")
				return
			}
			if req.Role == "" {
				req.Role = string(identity.RoleContributor)
			}
			if !identity.ValidRole(req.Role) {
				writeError(w, http.StatusBadRequest, "role must be admin or contributor")
				return
			}

			apiKey, err := identity.GenerateAPIKey()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate api key")
				return
			}
			err = store.CreateContributor(r.Context(), req.UserName, req.DisplayName, req.Role, identity.HashAPIKey(apiKey))
			if err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "unique") {
					writeError(w, http.StatusConflict, "contributor already exists")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to create contributor")
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{
				"userName":    req.UserName,
				"displayName": req.DisplayName,
				"role":        req.Role,
				"apiKey":      apiKey,
			})
		default:
			methodNotAllowed(w)
		}
	})
}

func contributorItemHandler(store *docstore.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userName := pathTail(r.URL.Path, "/v1/contributors/")
		if userName == "" {
			writeError(w, http.StatusBadRequest, "missing user name")
			return
		}

		switch r.Method {
		case http.MethodGet:
			contributor, err := store.GetContributor(r.Context(), userName)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeError(w, http.StatusNotFound, "contributor not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to load contributor")
				return
			}
			writeJSON(w, http.StatusOK, contributor)
		case http.MethodDelete:
			if err := store.DeleteContributor(r.Context(), userName); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeError(w, http.StatusNotFound, "contributor not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to delete contributor")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
	})
}
