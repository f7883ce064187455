package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"qna/internal/metrics"
	"qna/internal/qna"
)

type askQuestionRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type textRequest struct {
	Text string `json:"text"`
}

func questionsCollectionHandler(service *qna.Service, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := currentIdentity(r.Context())
		switch r.Method {
		case http.MethodPost:
			var req askQuestionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			question, err := service.AskQuestion(r.Context(), ident, req.Title, req.Body, req.Tags)
			if err != nil {
				writeCoreError(w, ident, m, err)
				return
			}
			m.QuestionsAskedTotal.Inc()
			writeJSON(w, http.StatusCreated, question)
		case http.MethodGet:
			questions, err := service.Search(r.Context(), ident, "")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to list questions")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"questions": questions,
				"total":     len(questions),
			})
		case http.MethodDelete:
			if err := service.DeleteAll(r.Context(), ident); err != nil {
				writeCoreError(w, ident, m, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
	})
}

// questionsScopedHandler dispatches everything under /v1/questions/{id}.
// Question references in the path may carry a .json suffix; the core
// strips it.
//
//	GET  {id}
//	POST {id}/comments
//	POST {id}/answers
//	POST {id}/upvotes | {id}/downvotes
//	POST {id}/answers/{aid}/comments
//	POST {id}/answers/{aid}/upvotes | downvotes
//	POST {id}/answers/{aid}/accept
func questionsScopedHandler(service *qna.Service, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := currentIdentity(r.Context())
		tail := pathTail(r.URL.Path, "/v1/questions/")
		if tail == "" {
			writeError(w, http.StatusBadRequest, "missing question id")
			return
		}
		parts := strings.Split(tail, "/")
		questionRef := parts[0]

		switch {
		case len(parts) == 1:
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			question, err := service.GetQuestion(r.Context(), ident, questionRef)
			if err != nil {
				writeCoreError(w, ident, m, err)
				return
			}
			writeJSON(w, http.StatusOK, question)

		case len(parts) == 2 && parts[1] == "comments":
			handleComment(w, r, service, m, questionRef, "")

		case len(parts) == 2 && parts[1] == "answers":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			var req textRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			question, _, err := service.AddAnswer(r.Context(), ident, questionRef, req.Text)
			if err != nil {
				writeCoreError(w, ident, m, err)
				return
			}
			m.AnswersTotal.Inc()
			writeJSON(w, http.StatusCreated, question)

		case len(parts) == 2 && (parts[1] == "upvotes" || parts[1] == "downvotes"):
			handleVote(w, r, service, m, questionRef, "", parts[1])

		case len(parts) == 4 && parts[1] == "answers" && parts[3] == "comments":
			handleComment(w, r, service, m, questionRef, parts[2])

		case len(parts) == 4 && parts[1] == "answers" && (parts[3] == "upvotes" || parts[3] == "downvotes"):
			handleVote(w, r, service, m, questionRef, parts[2], parts[3])

		case len(parts) == 4 && parts[1] == "answers" && parts[3] == "accept":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			question, err := service.AcceptAnswer(r.Context(), ident, questionRef, parts[2])
			if err != nil {
				writeCoreError(w, ident, m, err)
				return
			}
			m.AcceptsTotal.Inc()
			writeJSON(w, http.StatusOK, question)

		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	})
}

func handleComment(w http.ResponseWriter, r *http.Request, service *qna.Service, m *metrics.Metrics, questionRef, answerID string) {
	ident := currentIdentity(r.Context())
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	question, _, err := service.AddComment(r.Context(), ident, questionRef, answerID, req.Text)
	if err != nil {
		writeCoreError(w, ident, m, err)
		return
	}
	m.CommentsTotal.Inc()
	writeJSON(w, http.StatusCreated, question)
}

func handleVote(w http.ResponseWriter, r *http.Request, service *qna.Service, m *metrics.Metrics, questionRef, answerID, segment string) {
	ident := currentIdentity(r.Context())
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	direction := qna.DirectionUp
	if segment == "downvotes" {
		direction = qna.DirectionDown
	}
	question, err := service.Vote(r.Context(), ident, questionRef, answerID, direction)
	if err != nil {
		writeCoreError(w, ident, m, err)
		return
	}
	m.VotesTotal.WithLabelValues(string(direction)).Inc()
	writeJSON(w, http.StatusCreated, question)
}
