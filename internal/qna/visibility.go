package qna

import (
	"qna/internal/identity"
	"qna/internal/models"
)

// Visible is the visibility policy: a pure predicate over (question, viewer
// role), applied identically to direct reads and search results.
//
// An unresolved question is private to participants; once an answer has
// been accepted the thread is a finished artifact and anonymous viewers may
// read it. Authenticated viewers see everything.
func Visible(q *models.Question, role identity.Role) bool {
	if role.Authenticated() {
		return true
	}
	return q.AcceptedAnswerID != nil
}
