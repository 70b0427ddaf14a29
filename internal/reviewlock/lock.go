// Package reviewlock grants one session at a time the right to run an AI
// review on a document. The lock is a best-effort, TTL-bounded mutex over the
// shared store: two sessions can slip through the same check-then-act window,
// and the cost is a redundant review, never corrupted state.
package reviewlock

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"inkwell/internal/sharedstate"
)

const storeKey = "reviewLocks"

type lock struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

// Manager is the shared per-document review mutex map.
type Manager struct {
	store sharedstate.Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a lock manager over the shared store with the given lock TTL.
func New(store sharedstate.Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Acquire takes the review lock for a document. It succeeds when no live lock
// exists or the live lock already belongs to this session.
func (m *Manager) Acquire(ctx context.Context, docID, sessionID string) bool {
	locks := m.load(ctx)
	if held, ok := locks[docID]; ok && held.SessionID != sessionID {
		return false
	}
	locks[docID] = lock{SessionID: sessionID, StartedAt: m.now()}
	m.save(ctx, locks)
	return true
}

// Release drops the lock only while it is still owned by this session, so a
// late release cannot clobber a newer lock acquired after TTL expiry.
func (m *Manager) Release(ctx context.Context, docID, sessionID string) {
	locks := m.load(ctx)
	held, ok := locks[docID]
	if !ok || held.SessionID != sessionID {
		return
	}
	delete(locks, docID)
	m.save(ctx, locks)
}

func (m *Manager) load(ctx context.Context) map[string]lock {
	locks := make(map[string]lock)
	raw, ok, err := m.store.Get(ctx, storeKey)
	if err != nil {
		log.Printf("reviewlock: read locks: %v", err)
		return locks
	}
	if !ok {
		return locks
	}
	if err := json.Unmarshal([]byte(raw), &locks); err != nil {
		log.Printf("reviewlock: malformed locks, resetting: %v", err)
		return make(map[string]lock)
	}

	cutoff := m.now().Add(-m.ttl)
	for docID, l := range locks {
		if !l.StartedAt.After(cutoff) {
			delete(locks, docID)
		}
	}
	return locks
}

func (m *Manager) save(ctx context.Context, locks map[string]lock) {
	raw, err := json.Marshal(locks)
	if err != nil {
		log.Printf("reviewlock: marshal locks: %v", err)
		return
	}
	if err := m.store.Set(ctx, storeKey, string(raw)); err != nil {
		log.Printf("reviewlock: write locks: %v", err)
	}
}
