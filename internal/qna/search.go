package qna

import (
	"context"

	"qna/internal/identity"
	"qna/internal/models"
)

// Search delegates retrieval to the document store and filters the result
// sequence through the visibility policy. Matching and ordering belong to
// the store; this gateway only gates what each role may see. A blank query
// returns every question visible to the caller's role.
func (s *Service) Search(ctx context.Context, ident identity.Identity, query string) ([]models.Question, error) {
	candidates, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]models.Question, 0, len(candidates))
	for i := range candidates {
		if Visible(&candidates[i], ident.Role) {
			results = append(results, candidates[i])
		}
	}
	return results, nil
}
