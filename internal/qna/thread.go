package qna

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"qna/internal/models"
)

// Thread model: mutations on a single question aggregate. Every function
// validates before touching the aggregate, so a failed call leaves it
// unchanged. The caller persists the whole document afterwards.

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// NewQuestion builds a fresh aggregate with empty answer and comment
// sequences. Storage ids are URIs with a .json suffix; routing and
// cross-references strip it (see CanonicalQuestionID).
func NewQuestion(owner models.Owner, title, body string, tags []string, now time.Time) (*models.Question, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrValidation)
	}
	ts := now.UTC().Format(time.RFC3339)
	return &models.Question{
		ID:             "/questions/" + uuid.NewString() + ".json",
		Title:          title,
		Body:           body,
		Tags:           dedupeTags(tags),
		Owner:          owner,
		CreatedAt:      ts,
		LastActivityAt: ts,
		Comments:       []models.Comment{},
		Answers:        []models.Answer{},
	}, nil
}

// AttachAnswer appends a new answer and returns it.
func AttachAnswer(q *models.Question, owner models.Owner, body string, now time.Time) (*models.Answer, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	ts := now.UTC().Format(time.RFC3339)
	q.Answers = append(q.Answers, models.Answer{
		ID:        uuid.NewString(),
		Owner:     owner,
		Body:      body,
		Comments:  []models.Comment{},
		CreatedAt: ts,
	})
	q.LastActivityAt = ts
	return &q.Answers[len(q.Answers)-1], nil
}

// AttachComment appends a comment to the question itself (answerID empty)
// or to one of its answers.
func AttachComment(q *models.Question, answerID string, owner models.Owner, text string, now time.Time) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	ts := now.UTC().Format(time.RFC3339)
	comment := models.Comment{
		ID:        uuid.NewString(),
		Owner:     owner,
		Text:      text,
		CreatedAt: ts,
	}
	if answerID == "" {
		q.Comments = append(q.Comments, comment)
		q.LastActivityAt = ts
		return &q.Comments[len(q.Comments)-1], nil
	}
	answer := findAnswer(q, answerID)
	if answer == nil {
		return nil, fmt.Errorf("%w: answer %s not attached to question", ErrNotFound, answerID)
	}
	answer.Comments = append(answer.Comments, comment)
	q.LastActivityAt = ts
	return &answer.Comments[len(answer.Comments)-1], nil
}

// RecordVote increments exactly one counter on the question (answerID
// empty) or on one of its answers. Counters are monotonic; the core keeps
// no per-user vote ledger.
func RecordVote(q *models.Question, answerID string, direction Direction, now time.Time) error {
	var up, down *int
	if answerID == "" {
		up, down = &q.Upvotes, &q.Downvotes
	} else {
		answer := findAnswer(q, answerID)
		if answer == nil {
			return fmt.Errorf("%w: answer %s not attached to question", ErrNotFound, answerID)
		}
		up, down = &answer.Upvotes, &answer.Downvotes
	}
	switch direction {
	case DirectionUp:
		*up++
	case DirectionDown:
		*down++
	default:
		return fmt.Errorf("%w: invalid vote direction %q", ErrValidation, direction)
	}
	q.LastActivityAt = now.UTC().Format(time.RFC3339)
	return nil
}

// SetAcceptedAnswer records the resolving answer. Re-accepting the current
// answer is a no-op success; accepting a different attached answer
// reassigns. The ownership gate lives in the mutation engine, not here.
func SetAcceptedAnswer(q *models.Question, answerID string, now time.Time) error {
	answer := findAnswer(q, answerID)
	if answer == nil {
		return fmt.Errorf("%w: answer %s not attached to question", ErrNotFound, answerID)
	}
	if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == answer.ID {
		return nil
	}
	id := answer.ID
	q.AcceptedAnswerID = &id
	q.LastActivityAt = now.UTC().Format(time.RFC3339)
	return nil
}

func findAnswer(q *models.Question, answerID string) *models.Answer {
	want := stripStorageSuffix(answerID)
	for i := range q.Answers {
		if stripStorageSuffix(q.Answers[i].ID) == want {
			return &q.Answers[i]
		}
	}
	return nil
}

// CanonicalQuestionID maps any reference form (bare id, id with .json
// suffix, full storage URI) to the stored document id.
func CanonicalQuestionID(ref string) string {
	ref = stripStorageSuffix(strings.TrimSpace(ref))
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return "/questions/" + ref + ".json"
}

func stripStorageSuffix(id string) string {
	return strings.TrimSuffix(id, ".json")
}

func dedupeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
