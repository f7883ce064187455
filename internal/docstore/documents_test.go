package docstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"qna/internal/models"
	"qna/internal/qna"
)

func openTestDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	database, err := Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func testQuestion(id, title, body string) *models.Question {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC).Format(time.RFC3339)
	return &models.Question{
		ID:             "/questions/" + id + ".json",
		Title:          title,
		Body:           body,
		Tags:           []string{"go"},
		Owner:          models.Owner{UserName: "joe", DisplayName: "Joe"},
		CreatedAt:      ts,
		LastActivityAt: ts,
		Comments:       []models.Comment{},
		Answers:        []models.Answer{},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(openTestDB(t, "roundtrip.db"))

	q := testQuestion("q1", "How does versioning work?", "Body text.")
	if err := store.Put(ctx, q, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	loaded, version, err := store.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if version != 1 {
		t.Fatalf("fresh document version = %d, want 1", version)
	}
	if loaded.Title != q.Title || loaded.Owner.UserName != "joe" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Answers == nil || loaded.Comments == nil {
		t.Fatalf("empty sequences must survive the round trip as empty, not nil")
	}

	if _, _, err := store.Get(ctx, "/questions/absent.json"); !errors.Is(err, qna.ErrNotFound) {
		t.Fatalf("missing document: got %v, want not-found error", err)
	}
}

func TestPutConditionalWrite(t *testing.T) {
	ctx := context.Background()
	store := New(openTestDB(t, "cas.db"))

	q := testQuestion("q1", "title", "body")
	if err := store.Put(ctx, q, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Duplicate create loses.
	if err := store.Put(ctx, q, 0); !errors.Is(err, qna.ErrConflict) {
		t.Fatalf("duplicate insert: got %v, want conflict error", err)
	}

	// An update at the observed version wins and bumps the version.
	q.Title = "updated title"
	if err := store.Put(ctx, q, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, version, err := store.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if version != 2 {
		t.Fatalf("version after update = %d, want 2", version)
	}

	// A writer holding the stale version loses.
	if err := store.Put(ctx, q, 1); !errors.Is(err, qna.ErrConflict) {
		t.Fatalf("stale update: got %v, want conflict error", err)
	}

	// Updating a document that was deleted underneath reads as not found.
	missing := testQuestion("gone", "title", "body")
	if err := store.Put(ctx, missing, 3); !errors.Is(err, qna.ErrNotFound) {
		t.Fatalf("update of missing document: got %v, want not-found error", err)
	}
}

func TestQueryFullText(t *testing.T) {
	ctx := context.Background()
	store := New(openTestDB(t, "query.db"))

	first := testQuestion("q1", "Deploying with containers", "How do I ship this thing?")
	second := testQuestion("q2", "Database indexing", "Slow queries on a large table.")
	if err := store.Put(ctx, first, 0); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if err := store.Put(ctx, second, 0); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	all, err := store.Query(ctx, "")
	if err != nil {
		t.Fatalf("blank query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("blank query = %d results, want 2", len(all))
	}

	hits, err := store.Query(ctx, "indexing")
	if err != nil {
		t.Fatalf("match query: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != second.ID {
		t.Fatalf("match query results: %+v", hits)
	}

	// FTS rows follow document updates through the sync triggers.
	second.Title = "Sharding strategies"
	if err := store.Put(ctx, second, 1); err != nil {
		t.Fatalf("update second: %v", err)
	}
	hits, err = store.Query(ctx, "indexing")
	if err != nil {
		t.Fatalf("match after update: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("stale FTS row survived update: %+v", hits)
	}
	hits, err = store.Query(ctx, "sharding")
	if err != nil {
		t.Fatalf("match new title: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("updated title not indexed: %+v", hits)
	}
}

func TestDeleteAllKeepsContributors(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t, "reset.db")
	store := New(database)

	if err := store.CreateContributor(ctx, "joe", "Joe", "contributor", "hash-joe"); err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	if err := store.Put(ctx, testQuestion("q1", "title", "body"), 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	questions, err := store.Query(ctx, "")
	if err != nil {
		t.Fatalf("query after reset: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected no questions after reset, got %d", len(questions))
	}
	contributors, err := store.ListContributors(ctx)
	if err != nil {
		t.Fatalf("list contributors: %v", err)
	}
	if len(contributors) != 1 {
		t.Fatalf("contributors must survive a document reset, got %d", len(contributors))
	}
}
