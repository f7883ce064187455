package qna

import (
	"context"
	"fmt"
	"time"

	"qna/internal/identity"
	"qna/internal/models"
)

// DocumentStore is the persistence collaborator. Each question aggregate is
// one document; Put is conditional on the version observed by Get, so two
// concurrent writers cannot silently overwrite each other.
//
// Implementations report a missing document with ErrNotFound and a lost
// compare-and-swap with ErrConflict.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*models.Question, int64, error)
	Put(ctx context.Context, q *models.Question, expectedVersion int64) error
	Query(ctx context.Context, match string) ([]models.Question, error)
	DeleteAll(ctx context.Context) error
}

// Service is the mutation engine: it gates every write on the caller's role,
// re-reads the aggregate before each mutation, and writes back with the
// observed version. Conflicts surface to the caller; nothing is retried here.
type Service struct {
	store DocumentStore
	now   func() time.Time
}

func NewService(store DocumentStore) *Service {
	return &Service{store: store, now: time.Now}
}

// AskQuestion creates a question owned by the caller.
func (s *Service) AskQuestion(ctx context.Context, ident identity.Identity, title, body string, tags []string) (*models.Question, error) {
	if err := requireContributor(ident); err != nil {
		return nil, err
	}
	q, err := NewQuestion(ownerOf(ident), title, body, tags, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, q, 0); err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestion reads a single aggregate through the visibility policy.
// A question hidden from the caller's role reads as not found.
func (s *Service) GetQuestion(ctx context.Context, ident identity.Identity, questionRef string) (*models.Question, error) {
	q, _, err := s.loadQuestion(ctx, questionRef)
	if err != nil {
		return nil, err
	}
	if !Visible(q, ident.Role) {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, questionRef)
	}
	return q, nil
}

// AddAnswer appends an answer by any contributor and returns the updated
// aggregate together with the new answer.
func (s *Service) AddAnswer(ctx context.Context, ident identity.Identity, questionRef, text string) (*models.Question, *models.Answer, error) {
	if err := requireContributor(ident); err != nil {
		return nil, nil, err
	}
	q, version, err := s.loadQuestion(ctx, questionRef)
	if err != nil {
		return nil, nil, err
	}
	answer, err := AttachAnswer(q, ownerOf(ident), text, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Put(ctx, q, version); err != nil {
		return nil, nil, err
	}
	return q, answer, nil
}

// AddComment appends a comment to the question (answerID empty) or to one
// of its answers.
func (s *Service) AddComment(ctx context.Context, ident identity.Identity, questionRef, answerID, text string) (*models.Question, *models.Comment, error) {
	if err := requireContributor(ident); err != nil {
		return nil, nil, err
	}
	q, version, err := s.loadQuestion(ctx, questionRef)
	if err != nil {
		return nil, nil, err
	}
	comment, err := AttachComment(q, answerID, ownerOf(ident), text, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Put(ctx, q, version); err != nil {
		return nil, nil, err
	}
	return q, comment, nil
}

// Vote increments one counter on the question (answerID empty) or on one of
// its answers. No ownership check: any contributor may vote, repeatedly.
func (s *Service) Vote(ctx context.Context, ident identity.Identity, questionRef, answerID string, direction Direction) (*models.Question, error) {
	if err := requireContributor(ident); err != nil {
		return nil, err
	}
	q, version, err := s.loadQuestion(ctx, questionRef)
	if err != nil {
		return nil, err
	}
	if err := RecordVote(q, answerID, direction, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, q, version); err != nil {
		return nil, err
	}
	return q, nil
}

// AcceptAnswer designates the resolving answer. Only the question's owner
// may accept; privilege level does not matter, so an admin who does not own
// the question is rejected like anyone else. Re-accepting the current
// answer succeeds without a write; accepting a different attached answer
// reassigns.
func (s *Service) AcceptAnswer(ctx context.Context, ident identity.Identity, questionRef, answerID string) (*models.Question, error) {
	if !ident.Role.Authenticated() {
		return nil, fmt.Errorf("%w: authentication required", ErrPermission)
	}
	q, version, err := s.loadQuestion(ctx, questionRef)
	if err != nil {
		return nil, err
	}
	if q.Owner.UserName != ident.UserName {
		return nil, fmt.Errorf("%w: only the question owner may accept an answer", ErrPermission)
	}
	if q.AcceptedAnswerID != nil && stripStorageSuffix(*q.AcceptedAnswerID) == stripStorageSuffix(answerID) {
		return q, nil
	}
	if err := SetAcceptedAnswer(q, answerID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, q, version); err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteAll removes every question document. Administrative reset only.
func (s *Service) DeleteAll(ctx context.Context, ident identity.Identity) error {
	if ident.Role != identity.RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrPermission)
	}
	return s.store.DeleteAll(ctx)
}

func (s *Service) loadQuestion(ctx context.Context, questionRef string) (*models.Question, int64, error) {
	return s.store.Get(ctx, CanonicalQuestionID(questionRef))
}

func requireContributor(ident identity.Identity) error {
	if !ident.Role.Authenticated() {
		return fmt.Errorf("%w: authentication required", ErrPermission)
	}
	return nil
}

func ownerOf(ident identity.Identity) models.Owner {
	return models.Owner{UserName: ident.UserName, DisplayName: ident.DisplayName}
}
