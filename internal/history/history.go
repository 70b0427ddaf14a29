// Package history maintains the bounded, debounced undo/redo snapshot stack
// for a document, persisted to the shared store so a reloaded session resumes
// where it left off.
package history

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"inkwell/internal/debounce"
	"inkwell/internal/doc"
	"inkwell/internal/sharedstate"
)

// persisted is the serialized stack format under history.<docId>.
type persisted struct {
	Stack []json.RawMessage `json:"stack"`
	Index int               `json:"index"`
}

// Manager is one document's history. The snapshot callback captures the live
// content at fire time; apply replaces the live content when undo/redo moves
// the index (callers rehydrate and reschedule autosave from there).
type Manager struct {
	docID    string
	limit    int
	store    sharedstate.Store
	deb      *debounce.Debouncer
	snapshot func() *doc.Node
	apply    func(*doc.Node)

	mu       sync.Mutex
	stack    []json.RawMessage
	index    int
	applying bool
}

// New creates the history manager for a document and loads any persisted
// stack. Malformed or absent persisted history starts a fresh single-entry
// stack from the current content.
func New(docID string, limit int, window time.Duration, store sharedstate.Store, snapshot func() *doc.Node, apply func(*doc.Node)) *Manager {
	m := &Manager{
		docID:    docID,
		limit:    limit,
		store:    store,
		deb:      debounce.New(window),
		snapshot: snapshot,
		apply:    apply,
	}
	m.load()
	return m
}

// RecordChange notes a content mutation. Calls within the quiescence window
// coalesce into a single snapshot of the content visible at fire time.
// Applying a history change never records.
func (m *Manager) RecordChange() {
	m.mu.Lock()
	if m.applying {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.deb.Trigger(m.push)
}

// Undo steps back one snapshot. No-op at the bottom of the stack.
func (m *Manager) Undo() {
	m.deb.Flush()
	m.mu.Lock()
	if m.index <= 0 {
		m.mu.Unlock()
		return
	}
	m.index--
	m.applyLocked()
}

// Redo steps forward one snapshot. No-op at the top of the stack.
func (m *Manager) Redo() {
	m.deb.Flush()
	m.mu.Lock()
	if m.index >= len(m.stack)-1 {
		m.mu.Unlock()
		return
	}
	m.index++
	m.applyLocked()
}

// applyLocked hands stack[index] to the apply callback and persists. Takes
// m.mu locked, releases it before calling out.
func (m *Manager) applyLocked() {
	raw := m.stack[m.index]
	m.applying = true
	m.persistLocked()
	m.mu.Unlock()

	restored, err := doc.Parse(raw)
	if err != nil {
		log.Printf("history: corrupt snapshot for %s: %v", m.docID, err)
	} else {
		m.apply(restored)
	}

	m.mu.Lock()
	m.applying = false
	m.mu.Unlock()
}

// Flush forces a pending snapshot to be taken now.
func (m *Manager) Flush() {
	m.deb.Flush()
}

// Stop cancels any pending snapshot without taking it.
func (m *Manager) Stop() {
	m.deb.Stop()
}

// Len and Index expose stack shape for callers and tests.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// push captures the content visible now as a new snapshot: truncate any
// forward stack, append, evict from the oldest end past the limit.
func (m *Manager) push() {
	raw, err := doc.Marshal(m.snapshot())
	if err != nil {
		log.Printf("history: snapshot %s: %v", m.docID, err)
		return
	}

	m.mu.Lock()
	if len(m.stack) > 0 {
		m.stack = m.stack[:m.index+1]
	}
	m.stack = append(m.stack, raw)
	m.index = len(m.stack) - 1
	if len(m.stack) > m.limit {
		evict := len(m.stack) - m.limit
		m.stack = m.stack[evict:]
		m.index -= evict
	}
	m.persistLocked()
	m.mu.Unlock()
}

func (m *Manager) storeKey() string {
	return "history." + m.docID
}

// load restores the persisted stack; anything malformed is treated as absent.
func (m *Manager) load() {
	if fresh := m.loadPersisted(); !fresh {
		raw, err := doc.Marshal(m.snapshot())
		if err != nil {
			log.Printf("history: initial snapshot %s: %v", m.docID, err)
			return
		}
		m.mu.Lock()
		m.stack = []json.RawMessage{raw}
		m.index = 0
		m.persistLocked()
		m.mu.Unlock()
	}
}

func (m *Manager) loadPersisted() bool {
	value, ok, err := m.store.Get(context.Background(), m.storeKey())
	if err != nil {
		log.Printf("history: read %s: %v", m.storeKey(), err)
		return false
	}
	if !ok {
		return false
	}
	var p persisted
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		log.Printf("history: malformed %s, starting fresh: %v", m.storeKey(), err)
		return false
	}
	if len(p.Stack) == 0 || p.Index < 0 || p.Index >= len(p.Stack) {
		return false
	}
	m.mu.Lock()
	m.stack = p.Stack
	m.index = p.Index
	m.mu.Unlock()
	return true
}

// persistLocked serializes the stack. Write failures weaken reload continuity
// only; the in-memory stack keeps working.
func (m *Manager) persistLocked() {
	raw, err := json.Marshal(persisted{Stack: m.stack, Index: m.index})
	if err != nil {
		log.Printf("history: marshal %s: %v", m.storeKey(), err)
		return
	}
	if err := m.store.Set(context.Background(), m.storeKey(), string(raw)); err != nil {
		log.Printf("history: write %s: %v", m.storeKey(), err)
	}
}
