package review

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"inkwell/internal/doc"
	"inkwell/internal/registry"
	"inkwell/internal/store"
)

// Candidate is a document eligible for an autonomous review, together with
// the staleness snapshot the commit step is checked against.
type Candidate struct {
	Doc         store.Document
	HumanText   string
	LastHumanAt time.Time
	LastAIAt    time.Time
}

// Selector applies the eligibility rules and picks the next review target.
type Selector struct {
	minChars int
	cooldown time.Duration
	registry *registry.Registry
	now      func() time.Time

	mu       sync.Mutex
	failures map[string]time.Time
}

// NewSelector creates a selector. minChars is the minimum human text length;
// cooldown is how long a document stays off the table after a failed attempt.
func NewSelector(minChars int, cooldown time.Duration, reg *registry.Registry) *Selector {
	return &Selector{
		minChars: minChars,
		cooldown: cooldown,
		registry: reg,
		now:      time.Now,
		failures: make(map[string]time.Time),
	}
}

// RecordFailure starts the error cooldown for a document.
func (s *Selector) RecordFailure(docID string) {
	s.mu.Lock()
	s.failures[docID] = s.now()
	s.mu.Unlock()
}

// Pick returns the best review candidate among the given documents, or false
// when nothing is eligible. Candidates are ordered newest human edit first,
// ties broken by ascending document id.
func (s *Selector) Pick(ctx context.Context, docs []store.Document, sessionID, activeDocID string) (Candidate, bool) {
	var candidates []Candidate
	for _, d := range docs {
		if c, ok := s.eligible(ctx, d, sessionID, activeDocID); ok {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].LastHumanAt.Equal(candidates[j].LastHumanAt) {
			return candidates[i].Doc.ID < candidates[j].Doc.ID
		}
		return candidates[i].LastHumanAt.After(candidates[j].LastHumanAt)
	})
	return candidates[0], true
}

func (s *Selector) eligible(ctx context.Context, d store.Document, sessionID, activeDocID string) (Candidate, bool) {
	if d.ID == activeDocID {
		return Candidate{}, false
	}

	text, lastHuman, lastAI := doc.HumanText(d.Content)
	if lastHuman.IsZero() {
		// Documents with no per-node edit stamps fall back to the store timestamp.
		lastHuman = d.UpdatedAt
	}
	now := s.now()

	switch {
	case utf8.RuneCountInString(text) < s.minChars:
		return Candidate{}, false
	case isBareURL(text):
		return Candidate{}, false
	case lastHuman.After(now):
		return Candidate{}, false
	case !lastHuman.After(lastAI):
		return Candidate{}, false
	}
	if d.AIReviewAttemptedAt != nil && !d.AIReviewAttemptedAt.Before(lastHuman) {
		return Candidate{}, false
	}
	if s.inCooldown(d.ID, now) {
		return Candidate{}, false
	}
	if s.registry.IsOpenElsewhere(ctx, d.ID, sessionID) {
		return Candidate{}, false
	}

	return Candidate{Doc: d, HumanText: text, LastHumanAt: lastHuman, LastAIAt: lastAI}, true
}

func (s *Selector) inCooldown(docID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	failedAt, ok := s.failures[docID]
	return ok && now.Sub(failedAt) < s.cooldown
}

// isBareURL reports whether the text is nothing but a single link. URL-only
// notes are not reviewed.
func isBareURL(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n") {
		return false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
