package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"inkwell/internal/autosave"
	"inkwell/internal/config"
	"inkwell/internal/doc"
	"inkwell/internal/history"
	"inkwell/internal/registry"
	"inkwell/internal/sharedstate"
	"inkwell/internal/store"
	"inkwell/internal/util"
)

// Session is one running editor instance. It owns at most one open document
// at a time; the registry and lock map are the only state it shares with
// other sessions.
type Session struct {
	id     string
	cfg    config.Config
	docs   store.DocumentStore
	shared sharedstate.Store
	reg    *registry.Registry
	titles autosave.TitleGenerator

	// onIdle fires when the session returns to the home state, so the review
	// loop can re-arm.
	onIdle func()

	mu            sync.Mutex
	active        *store.Document
	hist          *history.Manager
	saver         *autosave.Scheduler
	heartbeatStop chan struct{}
}

// New wires a session. titles and onIdle may be nil.
func New(id string, cfg config.Config, docs store.DocumentStore, shared sharedstate.Store, reg *registry.Registry, titles autosave.TitleGenerator, onIdle func()) *Session {
	return &Session{
		id:     id,
		cfg:    cfg,
		docs:   docs,
		shared: shared,
		reg:    reg,
		titles: titles,
		onIdle: onIdle,
	}
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// ActiveDocID returns the open document's id, or "" in the home state. The
// review loop gates every transition out of idle on this.
func (s *Session) ActiveDocID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

// Create makes a fresh empty document and returns its id.
func (s *Session) Create(ctx context.Context) (string, error) {
	d := store.Document{ID: util.NewDocID(), Content: doc.NewDocument()}
	if err := s.docs.SaveDocument(ctx, d); err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return d.ID, nil
}

// Open loads a document and makes it this session's active document,
// announcing the claim and starting heartbeats. Any previously open document
// is closed first.
func (s *Session) Open(ctx context.Context, docID string) error {
	if err := s.Close(ctx); err != nil {
		return err
	}

	d, err := s.docs.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	doc.Rehydrate(d.Content)

	s.mu.Lock()
	s.active = &d
	s.mu.Unlock()

	s.saver = autosave.New(s.cfg.AutosaveDebounce, s, s.titles)
	s.hist = history.New(docID, s.cfg.HistoryLimit, s.cfg.HistoryDebounce, s.shared, s.snapshot, s.applySnapshot)

	s.reg.AnnounceOpen(ctx, docID, s.id)
	s.startHeartbeat()
	return nil
}

// Close flushes pending saves and history, withdraws the registry claim, and
// returns the session to the home state. Safe to call with nothing open.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	open := s.active != nil
	s.mu.Unlock()
	if !open {
		return nil
	}

	s.stopHeartbeat()
	s.hist.Flush()
	s.saver.Flush()
	s.hist.Stop()
	s.saver.Stop()
	s.reg.Remove(ctx, s.id)

	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()

	if s.onIdle != nil {
		s.onIdle()
	}
	return nil
}

// Resume re-announces the open document, e.g. on visibility regain.
func (s *Session) Resume(ctx context.Context) {
	docID := s.ActiveDocID()
	if docID != "" {
		s.reg.AnnounceOpen(ctx, docID, s.id)
	}
}

// EditText replaces the text of the node at path and reclassifies every
// enclosing AI-tagged region as human-authored.
func (s *Session) EditText(path []int, text string) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("no document open")
	}
	node, ok := doc.NodeAt(s.active.Content, path)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no node at path %v", path)
	}
	node.Text = text
	doc.ClassifyOnEdit(s.active.Content, path, time.Now())
	s.mu.Unlock()

	s.recordMutation()
	return nil
}

// AppendParagraph adds a human-authored paragraph at the end of the document.
func (s *Session) AppendParagraph(text string) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("no document open")
	}
	now := time.Now()
	textNode := doc.NewText(text)
	textNode.Provenance = doc.ProvenanceHuman
	textNode.HumanUpdatedAt = &now
	para := doc.NewParagraph(textNode)
	para.Provenance = doc.ProvenanceHuman
	s.active.Content.Content = append(s.active.Content.Content, para)
	s.mu.Unlock()

	s.recordMutation()
	return nil
}

// ToggleOutput flips the collapse state of an AI output block.
func (s *Session) ToggleOutput(blockID string) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("no document open")
	}
	ok := doc.ToggleOutputBlock(s.active.Content, blockID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no output block %s", blockID)
	}

	s.recordMutation()
	return nil
}

// DeleteOutput dissolves an AI output block, scrubbing generated content and
// keeping anything human-authored or highlighted in place.
func (s *Session) DeleteOutput(blockID string) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("no document open")
	}
	ok := doc.DissolveOutputBlock(s.active.Content, blockID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no output block %s", blockID)
	}

	s.recordMutation()
	return nil
}

// Undo and Redo move through the document's history.
func (s *Session) Undo() {
	if s.hist != nil {
		s.hist.Undo()
	}
}

func (s *Session) Redo() {
	if s.hist != nil {
		s.hist.Redo()
	}
}

// recordMutation notifies both debounced observers of a content change.
func (s *Session) recordMutation() {
	s.hist.RecordChange()
	s.saver.ScheduleSave()
}

// snapshot hands history the latest content at fire time.
func (s *Session) snapshot() *doc.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return doc.NewDocument()
	}
	return s.active.Content.Clone()
}

// applySnapshot replaces the live content after undo/redo, rehydrates derived
// state, and reschedules autosave.
func (s *Session) applySnapshot(restored *doc.Node) {
	doc.Rehydrate(restored)
	s.mu.Lock()
	if s.active != nil {
		s.active.Content = restored
	}
	s.mu.Unlock()
	s.saver.ScheduleSave()
}

// DocID, Title, HumanText, Persist, and SetTitle implement autosave.Target.

func (s *Session) DocID() string {
	return s.ActiveDocID()
}

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.Title
}

func (s *Session) HumanText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	text, _, _ := doc.HumanText(s.active.Content)
	return text
}

func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil
	}
	d := *s.active
	d.Content = s.active.Content.Clone()
	s.mu.Unlock()
	return s.docs.SaveDocument(ctx, d)
}

func (s *Session) SetTitle(ctx context.Context, title string) {
	s.mu.Lock()
	if s.active != nil {
		s.active.Title = title
	}
	docID := ""
	if s.active != nil {
		docID = s.active.ID
	}
	s.mu.Unlock()
	if docID == "" {
		return
	}
	if err := s.docs.UpdateTitle(ctx, docID, title); err != nil {
		log.Printf("session: set title %s: %v", docID, err)
	}
}

// RenderHTML projects the open document for whatever surface displays it.
func (s *Session) RenderHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return doc.RenderHTML(s.active.Content)
}

func (s *Session) startHeartbeat() {
	stop := make(chan struct{})
	s.mu.Lock()
	s.heartbeatStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				docID := s.ActiveDocID()
				if docID == "" {
					return
				}
				s.reg.AnnounceOpen(context.Background(), docID, s.id)
			}
		}
	}()
}

func (s *Session) stopHeartbeat() {
	s.mu.Lock()
	stop := s.heartbeatStop
	s.heartbeatStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
