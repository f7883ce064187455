package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qna/internal/docstore"
	"qna/internal/identity"
	"qna/internal/metrics"
	"qna/internal/ratelimit"
)

type contextKey string

const identityContextKey contextKey = "identity"

// identityMiddleware resolves the caller for the request. No bearer token
// resolves to the anonymous identity; anonymous is a first-class role here
// and per-operation rules decide what it may do. A token that matches no
// contributor is rejected rather than downgraded.
func identityMiddleware(store *docstore.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := identity.BearerToken(r.Header.Get("Authorization"))
		ident := identity.Anonymous
		if token != "" {
			contributor, err := store.GetContributorByAPIKeyHash(r.Context(), identity.HashAPIKey(token))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeError(w, http.StatusUnauthorized, "invalid api key")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to resolve identity")
				return
			}
			ident = identity.Identity{
				UserName:    contributor.UserName,
				DisplayName: contributor.DisplayName,
				Role:        identity.Role(contributor.Role),
			}
		}
		ctx := context.WithValue(r.Context(), identityContextKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentIdentity(ctx context.Context) identity.Identity {
	if ident, ok := ctx.Value(identityContextKey).(identity.Identity); ok {
		return ident
	}
	return identity.Anonymous
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := currentIdentity(r.Context())
		if ident.Role != identity.RoleAdmin {
			if !ident.Role.Authenticated() {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := currentIdentity(r.Context())
		caller := ident.UserName
		if caller == "" {
			caller = "anonymous"
		}

		decision := limiter.Allow(caller, classifyRequest(r), time.Now().UTC())
		if decision.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		}
		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func classifyRequest(r *http.Request) ratelimit.Class {
	if r.Method == http.MethodGet {
		return ratelimit.ClassRead
	}
	if r.URL.Path == "/v1/search" {
		return ratelimit.ClassSearch
	}
	if strings.HasSuffix(r.URL.Path, "/upvotes") || strings.HasSuffix(r.URL.Path, "/downvotes") {
		return ratelimit.ClassVote
	}
	return ratelimit.ClassWrite
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// observeMiddleware records request metrics and a structured log line per
// request, keyed by the mux route rather than the raw path.
func observeMiddleware(log zerolog.Logger, m *metrics.Metrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", duration).
			Msg("request")
	})
}
