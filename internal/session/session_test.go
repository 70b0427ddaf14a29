package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/doc"
	"inkwell/internal/registry"
	"inkwell/internal/sharedstate"
	"inkwell/internal/store"
)

// testConfig uses debounce windows long enough that nothing fires on its own;
// tests exercise the explicit flush paths instead.
func testConfig() config.Config {
	return config.Config{
		OpenDocTTL:        15 * time.Second,
		HeartbeatInterval: time.Hour,
		HistoryLimit:      100,
		HistoryDebounce:   time.Hour,
		AutosaveDebounce:  time.Hour,
	}
}

type fixture struct {
	docs     *store.MemoryStore
	shared   sharedstate.Store
	registry *registry.Registry
	sess     *Session
	idleHits int
}

func newFixture(cfg config.Config) *fixture {
	f := &fixture{
		docs:   store.NewMemoryStore(),
		shared: sharedstate.NewMemoryStore(),
	}
	f.registry = registry.New(f.shared, cfg.OpenDocTTL)
	f.sess = New("session-a", cfg, f.docs, f.shared, f.registry, nil, func() { f.idleHits++ })
	return f
}

func TestCreateOpenClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	id, err := f.sess.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.sess.ActiveDocID() != "" {
		t.Error("create should not open the document")
	}

	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.sess.ActiveDocID() != id {
		t.Errorf("active doc %q, want %q", f.sess.ActiveDocID(), id)
	}

	if err := f.sess.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.sess.ActiveDocID() != "" {
		t.Error("close left a document active")
	}
	if f.idleHits != 1 {
		t.Errorf("onIdle fired %d times, want 1", f.idleHits)
	}
}

func TestOpenMissingDocument(t *testing.T) {
	f := newFixture(testConfig())
	if err := f.sess.Open(context.Background(), "doc_nope"); err == nil {
		t.Fatal("expected error opening missing document")
	}
}

func TestCloseFlushesPendingEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	id, _ := f.sess.Create(ctx)
	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.sess.AppendParagraph("written moments before closing"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.sess.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(f.storedJSON(t, id), "written moments before closing") {
		t.Error("trailing edit lost on close")
	}
}

func (f *fixture) storedJSON(t *testing.T, id string) string {
	t.Helper()
	d, err := f.docs.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	b, err := doc.Marshal(d.Content)
	if err != nil {
		t.Fatalf("marshal %s: %v", id, err)
	}
	return string(b)
}

func TestRegistryClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	id, _ := f.sess.Create(ctx)
	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !f.registry.IsOpenElsewhere(ctx, id, "session-b") {
		t.Error("open document not visible to other sessions")
	}

	if err := f.sess.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.registry.IsOpenElsewhere(ctx, id, "session-b") {
		t.Error("registry claim survived close")
	}
}

func TestEditWithoutOpenDocument(t *testing.T) {
	f := newFixture(testConfig())
	if err := f.sess.AppendParagraph("nowhere to go"); err == nil {
		t.Error("expected error appending with no document open")
	}
	if err := f.sess.EditText([]int{0, 0}, "nope"); err == nil {
		t.Error("expected error editing with no document open")
	}
}

func TestEditTextInvalidPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	id, _ := f.sess.Create(ctx)
	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.sess.Close(ctx)

	if err := f.sess.EditText([]int{42, 7}, "text"); err == nil {
		t.Error("expected error for out-of-range path")
	}
}

func TestUndoRestoresPriorContent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.HistoryDebounce = 5 * time.Millisecond
	f := newFixture(cfg)

	id, _ := f.sess.Create(ctx)
	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.sess.Close(ctx)

	if err := f.sess.AppendParagraph("first thought"); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := f.sess.AppendParagraph("second thought"); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	f.sess.Undo()
	html := f.sess.RenderHTML()
	if strings.Contains(html, "second thought") {
		t.Error("undo did not remove the latest paragraph")
	}
	if !strings.Contains(html, "first thought") {
		t.Error("undo removed too much")
	}

	f.sess.Redo()
	html = f.sess.RenderHTML()
	if !strings.Contains(html, "second thought") {
		t.Error("redo did not restore the latest paragraph")
	}
}

func TestOpenSwitchesDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	first, _ := f.sess.Create(ctx)
	second, _ := f.sess.Create(ctx)

	if err := f.sess.Open(ctx, first); err != nil {
		t.Fatalf("open first: %v", err)
	}
	if err := f.sess.AppendParagraph("kept across the switch"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.sess.Open(ctx, second); err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer f.sess.Close(ctx)

	if f.sess.ActiveDocID() != second {
		t.Errorf("active doc %q, want %q", f.sess.ActiveDocID(), second)
	}
	// Switching closes the first document, flushing its pending save.
	if !strings.Contains(f.storedJSON(t, first), "kept across the switch") {
		t.Error("edit to first document lost when switching")
	}
	if f.registry.IsOpenElsewhere(ctx, first, "session-b") {
		t.Error("first document still claimed after switch")
	}
}

func TestResumeReannouncesClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testConfig())

	id, _ := f.sess.Create(ctx)
	if err := f.sess.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.sess.Close(ctx)

	// Withdraw the claim behind the session's back, then resume.
	f.registry.Remove(ctx, "session-a")
	f.sess.Resume(ctx)

	if !f.registry.IsOpenElsewhere(ctx, id, "session-b") {
		t.Error("resume did not re-announce the open document")
	}
}
