package api

import (
	"encoding/json"
	"net/http"

	"qna/internal/metrics"
	"qna/internal/qna"
)

type searchRequest struct {
	Query string `json:"query"`
}

// searchHandler runs a full-text query over questions. Results honor the
// same visibility rules as direct reads.
func searchHandler(service *qna.Service, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		ident := currentIdentity(r.Context())

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}

		results, err := service.Search(r.Context(), ident, req.Query)
		if err != nil {
			writeCoreError(w, ident, m, err)
			return
		}
		m.SearchesTotal.Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results,
			"total":   len(results),
		})
	})
}
