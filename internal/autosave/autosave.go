// Package autosave turns bursts of "document changed" events into periodic
// persistence calls, and generates a title the first time an untitled document
// gains content.
package autosave

import (
	"context"
	"log"
	"sync"
	"time"

	"inkwell/internal/debounce"
)

// Target is what the scheduler saves: the session's live document.
type Target interface {
	DocID() string
	Title() string
	HumanText() string
	Persist(ctx context.Context) error
	SetTitle(ctx context.Context, title string)
}

// TitleGenerator produces a title from human-authored text.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, humanText string) (string, error)
}

// Scheduler debounces saves for one session. titles may be nil, disabling
// title generation.
type Scheduler struct {
	deb    *debounce.Debouncer
	target Target
	titles TitleGenerator

	mu        sync.Mutex
	generated map[string]bool
}

// New creates a scheduler with the given quiescence window.
func New(window time.Duration, target Target, titles TitleGenerator) *Scheduler {
	return &Scheduler{
		deb:       debounce.New(window),
		target:    target,
		titles:    titles,
		generated: make(map[string]bool),
	}
}

// ScheduleSave (re)starts the debounce timer; firing persists the latest
// content exactly once per quiescence window.
func (s *Scheduler) ScheduleSave() {
	s.deb.Trigger(s.fire)
}

// Flush cancels any pending timer and persists immediately. Must run before
// session teardown so trailing edits are not lost.
func (s *Scheduler) Flush() {
	s.deb.Flush()
}

// Stop cancels any pending save without persisting.
func (s *Scheduler) Stop() {
	s.deb.Stop()
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.target.Persist(ctx); err != nil {
		log.Printf("autosave: persist %s: %v", s.target.DocID(), err)
		return
	}
	s.maybeGenerateTitle(ctx)
}

// maybeGenerateTitle fires at most once per document, on the first save that
// finds the document non-empty and still untitled.
func (s *Scheduler) maybeGenerateTitle(ctx context.Context) {
	if s.titles == nil {
		return
	}
	docID := s.target.DocID()

	s.mu.Lock()
	done := s.generated[docID]
	s.mu.Unlock()
	if done {
		return
	}

	if s.target.Title() != "" {
		s.markGenerated(docID)
		return
	}
	text := s.target.HumanText()
	if text == "" {
		return
	}

	title, err := s.titles.GenerateTitle(ctx, text)
	if err != nil {
		// Guard stays unset so a later save retries while still untitled.
		log.Printf("autosave: generate title for %s: %v", docID, err)
		return
	}
	s.markGenerated(docID)
	if title != "" {
		s.target.SetTitle(ctx, title)
	}
}

func (s *Scheduler) markGenerated(docID string) {
	s.mu.Lock()
	s.generated[docID] = true
	s.mu.Unlock()
}
