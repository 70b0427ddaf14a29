package store

import (
	"time"

	"inkwell/internal/doc"
)

// Document is the stored unit of editing. AIReviewedAt is the last successful
// review; AIReviewAttemptedAt covers failed and empty attempts too, and once
// any attempt exists it is never older than AIReviewedAt.
type Document struct {
	ID                  string
	Title               string
	Content             *doc.Node
	UpdatedAt           time.Time
	AIReviewedAt        *time.Time
	AIReviewAttemptedAt *time.Time
}
