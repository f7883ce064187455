package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"qna/internal/identity"
	"qna/internal/models"
)

func (s *Store) CreateContributor(ctx context.Context, userName, displayName, role, apiKeyHash string) error {
	created := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO contributors (user_name, display_name, api_key, role, created) VALUES (?, ?, ?, ?, ?)`,
		userName, displayName, apiKeyHash, role, created,
	)
	return err
}

func (s *Store) ListContributors(ctx context.Context) ([]models.Contributor, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_name, COALESCE(display_name, ''), role, created
FROM contributors
ORDER BY created ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Contributor, 0)
	for rows.Next() {
		var c models.Contributor
		if err := rows.Scan(&c.UserName, &c.DisplayName, &c.Role, &c.Created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetContributor(ctx context.Context, userName string) (*models.Contributor, error) {
	var c models.Contributor
	err := s.db.QueryRowContext(ctx, `
SELECT user_name, COALESCE(display_name, ''), role, created
FROM contributors
WHERE user_name = ?`, userName).
		Scan(&c.UserName, &c.DisplayName, &c.Role, &c.Created)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetContributorByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.Contributor, error) {
	var c models.Contributor
	err := s.db.QueryRowContext(ctx, `
SELECT user_name, COALESCE(display_name, ''), role, created
FROM contributors
WHERE api_key = ?`, apiKeyHash).
		Scan(&c.UserName, &c.DisplayName, &c.Role, &c.Created)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteContributor(ctx context.Context, userName string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contributors WHERE user_name = ?`, userName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EnsureBootstrapAdmin creates an initial admin account when none exists
// and writes its raw API key to keyOutPath. Returns the created user name,
// or "" when an admin was already present.
func (s *Store) EnsureBootstrapAdmin(keyOutPath string) (string, error) {
	ctx := context.Background()
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM contributors WHERE role = 'admin'`).Scan(&count); err != nil {
		return "", fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	apiKey, err := identity.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	userName := "admin"
	if err := s.CreateContributor(ctx, userName, "Administrator", "admin", identity.HashAPIKey(apiKey)); err != nil {
		return "", fmt.Errorf("create bootstrap admin: %w", err)
	}

	if err := os.WriteFile(keyOutPath, []byte(apiKey+"\n"), 0o600); err != nil {
		if delErr := s.DeleteContributor(ctx, userName); delErr != nil && !errors.Is(delErr, sql.ErrNoRows) {
			return "", fmt.Errorf("write key failed (%v), rollback failed (%v)", err, delErr)
		}
		return "", fmt.Errorf("write admin key file: %w", err)
	}

	return userName, nil
}
