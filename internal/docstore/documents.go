package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"qna/internal/models"
	"qna/internal/qna"
)

// Store persists question aggregates as versioned JSON documents and backs
// the contributor account lookup. It satisfies qna.DocumentStore: a missing
// document reads as qna.ErrNotFound and a failed conditional write as
// qna.ErrConflict.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id string) (*models.Question, int64, error) {
	var (
		doc     string
		version int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT doc, version
FROM documents
WHERE id = ?`, id).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: document %s", qna.ErrNotFound, id)
	}
	if err != nil {
		return nil, 0, err
	}
	q := &models.Question{}
	if err := json.Unmarshal([]byte(doc), q); err != nil {
		return nil, 0, fmt.Errorf("decode document %s: %w", id, err)
	}
	return q, version, nil
}

// Put writes the aggregate conditionally. expectedVersion 0 creates the
// document; any other value must match the version returned by Get, or the
// write lost a race and the caller gets qna.ErrConflict.
func (s *Store) Put(ctx context.Context, q *models.Question, expectedVersion int64) error {
	doc, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", q.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, kind, doc, version, created, updated)
VALUES (?, 'question', ?, 1, ?, ?)`,
			q.ID, string(doc), now, now)
		if err != nil {
			if isUniqueConstraint(err) {
				return fmt.Errorf("%w: document %s already exists", qna.ErrConflict, q.ID)
			}
			return err
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE documents
SET doc = ?, version = version + 1, updated = ?
WHERE id = ? AND version = ?`,
		string(doc), now, q.ID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM documents WHERE id = ?`, q.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: document %s", qna.ErrNotFound, q.ID)
		}
		return fmt.Errorf("%w: document %s changed since read", qna.ErrConflict, q.ID)
	}
	return nil
}

// Query returns question candidates for a search. A blank match returns all
// questions ordered by last activity; otherwise the match string goes to
// the FTS index over title, body, and tags. Visibility filtering is the
// caller's job.
func (s *Store) Query(ctx context.Context, match string) ([]models.Question, error) {
	match = strings.TrimSpace(match)

	var (
		rows *sql.Rows
		err  error
	)
	if match == "" {
		rows, err = s.db.QueryContext(ctx, `
SELECT doc
FROM documents
WHERE kind = 'question'
ORDER BY json_extract(doc, '$.lastActivityAt') DESC, created DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT d.doc
FROM documents_fts
JOIN documents d ON d.rowid = documents_fts.rowid
WHERE documents_fts MATCH ? AND d.kind = 'question'
ORDER BY d.created DESC`, match)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Question, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var q models.Question
		if err := json.Unmarshal([]byte(doc), &q); err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteAll clears every document. Contributor accounts survive the reset.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

func isUniqueConstraint(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
