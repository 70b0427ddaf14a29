package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"inkwell/internal/doc"
)

// Open connects to Postgres with sane pool limits.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresStore implements DocumentStore on Postgres with content as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ai_reviewed_at TIMESTAMPTZ,
			ai_review_attempted_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, updated_at, ai_reviewed_at, ai_review_attempted_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, updated_at, ai_reviewed_at, ai_review_attempted_at
		FROM documents
		WHERE id = $1
	`, id)
	d, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (s *PostgresStore) SaveDocument(ctx context.Context, d Document) error {
	content, err := doc.Marshal(d.Content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, updated_at, ai_reviewed_at, ai_review_attempted_at)
		VALUES ($1, $2, $3, NOW(), $4, $5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, content=EXCLUDED.content, updated_at=NOW()
	`, d.ID, d.Title, content, d.AIReviewedAt, d.AIReviewAttemptedAt)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTitle(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET title=$2 WHERE id=$1`, id, title)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

func (s *PostgresStore) StampAttempt(ctx context.Context, id string, attemptedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET ai_review_attempted_at=$2 WHERE id=$1
	`, id, attemptedAt)
	if err != nil {
		return fmt.Errorf("stamp review attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) CommitReview(ctx context.Context, id string, content *doc.Node, reviewedAt time.Time, expectedUpdatedAt time.Time) (bool, error) {
	raw, err := doc.Marshal(content)
	if err != nil {
		return false, err
	}
	// updated_at takes the review stamp itself, not NOW(): a committed review
	// must never read as an edit newer than its own output.
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET content=$2, updated_at=$3, ai_reviewed_at=$3, ai_review_attempted_at=$3
		WHERE id=$1 AND updated_at=$4
	`, id, raw, reviewedAt, expectedUpdatedAt)
	if err != nil {
		return false, fmt.Errorf("commit review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit review: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanDocument(scan func(...any) error) (Document, error) {
	var d Document
	var content []byte
	if err := scan(&d.ID, &d.Title, &content, &d.UpdatedAt, &d.AIReviewedAt, &d.AIReviewAttemptedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	parsed, err := doc.Parse(content)
	if err != nil {
		return Document{}, err
	}
	d.Content = parsed
	return d, nil
}
