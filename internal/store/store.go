// Package store persists documents. The review loop reads every document from
// here and writes review outcomes back; sessions save through it.
package store

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/doc"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the document persistence contract.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	// SaveDocument upserts content and title and refreshes UpdatedAt.
	SaveDocument(ctx context.Context, d Document) error
	UpdateTitle(ctx context.Context, id, title string) error
	// StampAttempt records a review attempt without touching content.
	StampAttempt(ctx context.Context, id string, attemptedAt time.Time) error
	// CommitReview writes reviewed content and both review stamps, but only
	// while UpdatedAt still equals expectedUpdatedAt. Returns false when the
	// document changed underneath the review and nothing was written. On
	// success UpdatedAt becomes reviewedAt, so the commit itself never counts
	// as a newer human edit.
	CommitReview(ctx context.Context, id string, content *doc.Node, reviewedAt time.Time, expectedUpdatedAt time.Time) (bool, error)
	Ping(ctx context.Context) error
}
