package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"inkwell/internal/doc"
)

// MemoryStore is an in-process DocumentStore used by tests and by sessions
// running without a database.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), now: time.Now}
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, cloneDocument(d))
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(d), nil
}

func (s *MemoryStore) SaveDocument(ctx context.Context, d Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := cloneDocument(d)
	saved.UpdatedAt = s.now()
	if prior, ok := s.docs[d.ID]; ok {
		saved.AIReviewedAt = prior.AIReviewedAt
		saved.AIReviewAttemptedAt = prior.AIReviewAttemptedAt
	}
	s.docs[d.ID] = saved
	return nil
}

func (s *MemoryStore) UpdateTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.Title = title
	s.docs[id] = d
	return nil
}

func (s *MemoryStore) StampAttempt(ctx context.Context, id string, attemptedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	t := attemptedAt
	d.AIReviewAttemptedAt = &t
	s.docs[id] = d
	return nil
}

func (s *MemoryStore) CommitReview(ctx context.Context, id string, content *doc.Node, reviewedAt time.Time, expectedUpdatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	if !d.UpdatedAt.Equal(expectedUpdatedAt) {
		return false, nil
	}
	t := reviewedAt
	d.Content = content.Clone()
	// The review stamp doubles as the update time, so a committed review never
	// reads as a human edit newer than its own output.
	d.UpdatedAt = t
	d.AIReviewedAt = &t
	d.AIReviewAttemptedAt = &t
	s.docs[id] = d
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneDocument(d Document) Document {
	out := d
	out.Content = d.Content.Clone()
	if d.AIReviewedAt != nil {
		t := *d.AIReviewedAt
		out.AIReviewedAt = &t
	}
	if d.AIReviewAttemptedAt != nil {
		t := *d.AIReviewAttemptedAt
		out.AIReviewAttemptedAt = &t
	}
	return out
}
