package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qna/internal/docstore"
	"qna/internal/identity"
	"qna/internal/metrics"
	"qna/internal/qna"
	"qna/internal/ratelimit"
)

func NewRouter(database *sql.DB, version string, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	store := docstore.New(database)
	service := qna.NewService(store)
	m := metrics.New()
	limiter := ratelimit.New(nil)

	wrap := func(route string, h http.Handler) http.Handler {
		return observeMiddleware(log, m, route,
			identityMiddleware(store,
				rateLimitMiddleware(limiter, h)))
	}

	mux.HandleFunc("/v1/status", statusHandler(database, version))
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/v1/whoami", wrap("/v1/whoami", whoAmIHandler()))
	mux.Handle("/v1/questions", wrap("/v1/questions", questionsCollectionHandler(service, m)))
	mux.Handle("/v1/questions/", wrap("/v1/questions/", questionsScopedHandler(service, m)))
	mux.Handle("/v1/search", wrap("/v1/search", searchHandler(service, m)))
	mux.Handle("/v1/contributors", wrap("/v1/contributors", adminOnly(contributorsCollectionHandler(store))))
	mux.Handle("/v1/contributors/", wrap("/v1/contributors/", adminOnly(contributorItemHandler(store))))
	return mux
}

func statusHandler(database *sql.DB, version string) http.HandlerFunc {
	type statusResponse struct {
		Status    string `json:"status"`
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		if err := database.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Status:    "ok",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func whoAmIHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		ident := currentIdentity(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"userName":    ident.UserName,
			"displayName": ident.DisplayName,
			"role":        string(ident.Role),
		})
	})
}

func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	tail = strings.Trim(tail, "/")
	return tail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeCoreError translates the core taxonomy into status codes. The core
// does not distinguish forbidden from unauthenticated; that split happens
// here based on the resolved identity.
func writeCoreError(w http.ResponseWriter, ident identity.Identity, m *metrics.Metrics, err error) {
	switch {
	case errors.Is(err, qna.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, qna.ErrPermission):
		if !ident.Role.Authenticated() {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, qna.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, qna.ErrConflict):
		m.WriteConflictsTotal.Inc()
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
