// Package registry tracks which session has which document open right now.
// Entries expire by TTL, so a crashed or closed session's claim self-heals
// without explicit cleanup.
package registry

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"inkwell/internal/sharedstate"
)

const storeKey = "openDocs"

// entry is one session's open-document claim. A session holds at most one
// document at a time, so the serialized map is keyed by session id.
type entry struct {
	DocID    string    `json:"docId"`
	LastSeen time.Time `json:"lastSeen"`
}

// Registry is the shared open-document directory.
type Registry struct {
	store sharedstate.Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a registry over the shared store with the given entry TTL.
func New(store sharedstate.Store, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl, now: time.Now}
}

// AnnounceOpen upserts this session's claim on a document with a fresh
// heartbeat timestamp, replacing any prior claim by the same session.
func (r *Registry) AnnounceOpen(ctx context.Context, docID, sessionID string) {
	entries := r.load(ctx)
	entries[sessionID] = entry{DocID: docID, LastSeen: r.now()}
	r.save(ctx, entries)
}

// Remove drops this session's claim. Called on session teardown and when the
// session returns to the home state.
func (r *Registry) Remove(ctx context.Context, sessionID string) {
	entries := r.load(ctx)
	if _, ok := entries[sessionID]; !ok {
		return
	}
	delete(entries, sessionID)
	r.save(ctx, entries)
}

// IsOpenElsewhere reports whether any other session has a live claim on the
// document.
func (r *Registry) IsOpenElsewhere(ctx context.Context, docID, sessionID string) bool {
	for owner, e := range r.load(ctx) {
		if e.DocID == docID && owner != sessionID {
			return true
		}
	}
	return false
}

// IsOpenAnywhere is the stricter post-review check: true if another session
// holds the document live, or this session switched into that exact document
// while the review was running.
func (r *Registry) IsOpenAnywhere(ctx context.Context, docID, sessionID, activeDocID string) bool {
	if activeDocID == docID {
		return true
	}
	return r.IsOpenElsewhere(ctx, docID, sessionID)
}

// load reads and prunes the shared map. Read failures degrade to an empty map;
// cross-session visibility weakens until storage recovers, nothing else.
func (r *Registry) load(ctx context.Context) map[string]entry {
	entries := make(map[string]entry)
	raw, ok, err := r.store.Get(ctx, storeKey)
	if err != nil {
		log.Printf("registry: read open documents: %v", err)
		return entries
	}
	if !ok {
		return entries
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("registry: malformed open documents, resetting: %v", err)
		return make(map[string]entry)
	}

	cutoff := r.now().Add(-r.ttl)
	for owner, e := range entries {
		if !e.LastSeen.After(cutoff) {
			delete(entries, owner)
		}
	}
	return entries
}

func (r *Registry) save(ctx context.Context, entries map[string]entry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		log.Printf("registry: marshal open documents: %v", err)
		return
	}
	if err := r.store.Set(ctx, storeKey, string(raw)); err != nil {
		log.Printf("registry: write open documents: %v", err)
	}
}
