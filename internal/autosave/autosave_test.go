package autosave

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTarget struct {
	docID     string
	title     string
	humanText string
	persists  int64
	persistFn func(context.Context) error
	setTitles []string
}

func (f *fakeTarget) DocID() string     { return f.docID }
func (f *fakeTarget) Title() string     { return f.title }
func (f *fakeTarget) HumanText() string { return f.humanText }
func (f *fakeTarget) Persist(ctx context.Context) error {
	atomic.AddInt64(&f.persists, 1)
	if f.persistFn != nil {
		return f.persistFn(ctx)
	}
	return nil
}
func (f *fakeTarget) SetTitle(ctx context.Context, title string) {
	f.title = title
	f.setTitles = append(f.setTitles, title)
}

type fakeTitles struct {
	calls      int64
	generateFn func(context.Context, string) (string, error)
}

func (f *fakeTitles) GenerateTitle(ctx context.Context, humanText string) (string, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.generateFn != nil {
		return f.generateFn(ctx, humanText)
	}
	return "Generated Title", nil
}

func TestScheduleSaveCoalesces(t *testing.T) {
	target := &fakeTarget{docID: "doc_1"}
	s := New(30*time.Millisecond, target, nil)

	for i := 0; i < 5; i++ {
		s.ScheduleSave()
	}
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt64(&target.persists); got != 1 {
		t.Errorf("expected 1 persist for the burst, got %d", got)
	}
}

func TestFlushPersistsPendingImmediately(t *testing.T) {
	target := &fakeTarget{docID: "doc_1"}
	s := New(time.Hour, target, nil)

	s.ScheduleSave()
	s.Flush()

	if got := atomic.LoadInt64(&target.persists); got != 1 {
		t.Errorf("expected flush to persist, got %d persists", got)
	}
}

func TestFlushWithoutPendingDoesNothing(t *testing.T) {
	target := &fakeTarget{docID: "doc_1"}
	s := New(time.Hour, target, nil)
	s.Flush()

	if atomic.LoadInt64(&target.persists) != 0 {
		t.Error("idle flush persisted")
	}
}

func TestTitleGeneratedOncePerDocument(t *testing.T) {
	target := &fakeTarget{docID: "doc_1", humanText: "a note with enough words"}
	titles := &fakeTitles{}
	s := New(time.Hour, target, titles)

	s.ScheduleSave()
	s.Flush()
	s.ScheduleSave()
	s.Flush()

	if got := atomic.LoadInt64(&titles.calls); got != 1 {
		t.Errorf("expected exactly 1 title generation, got %d", got)
	}
	if target.title != "Generated Title" {
		t.Errorf("title not applied: %q", target.title)
	}
}

func TestNoTitleForAlreadyTitledDocument(t *testing.T) {
	target := &fakeTarget{docID: "doc_1", title: "Existing", humanText: "content"}
	titles := &fakeTitles{}
	s := New(time.Hour, target, titles)

	s.ScheduleSave()
	s.Flush()

	if atomic.LoadInt64(&titles.calls) != 0 {
		t.Error("generated a title for a titled document")
	}
}

func TestNoTitleForEmptyDocument(t *testing.T) {
	target := &fakeTarget{docID: "doc_1"}
	titles := &fakeTitles{}
	s := New(time.Hour, target, titles)

	s.ScheduleSave()
	s.Flush()

	if atomic.LoadInt64(&titles.calls) != 0 {
		t.Error("generated a title for an empty document")
	}
}

func TestTitleFailureRetriesOnLaterSave(t *testing.T) {
	target := &fakeTarget{docID: "doc_1", humanText: "content worth titling"}
	titles := &fakeTitles{}
	fail := true
	titles.generateFn = func(context.Context, string) (string, error) {
		if fail {
			return "", errors.New("model unavailable")
		}
		return "Recovered Title", nil
	}
	s := New(time.Hour, target, titles)

	s.ScheduleSave()
	s.Flush()
	fail = false
	s.ScheduleSave()
	s.Flush()

	if target.title != "Recovered Title" {
		t.Errorf("title not generated after recovery: %q", target.title)
	}
	if got := atomic.LoadInt64(&titles.calls); got != 2 {
		t.Errorf("expected 2 generation attempts, got %d", got)
	}
}

func TestPersistFailureSkipsTitleGeneration(t *testing.T) {
	target := &fakeTarget{docID: "doc_1", humanText: "content"}
	target.persistFn = func(context.Context) error { return errors.New("quota") }
	titles := &fakeTitles{}
	s := New(time.Hour, target, titles)

	s.ScheduleSave()
	s.Flush()

	if atomic.LoadInt64(&titles.calls) != 0 {
		t.Error("title generated despite failed persist")
	}
}
