package review

import (
	"context"
	"log"
	"sync"
	"time"

	"inkwell/internal/debounce"
	"inkwell/internal/doc"
	"inkwell/internal/registry"
	"inkwell/internal/reviewlock"
	"inkwell/internal/store"
	"inkwell/internal/util"
)

// Loop states. Transitioning out of Idle requires the session to have no
// active document.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateLocking    State = "locking"
	StateReviewing  State = "reviewing"
	StateCommitting State = "committing"
)

// rearmDelay debounces the extra tick fired when the session re-enters the
// idle state.
const rearmDelay = 2 * time.Second

// Loop is the autonomous review loop for one session. It runs only while the
// session has no document open, picks a candidate each tick, and commits the
// result only if the target is still untouched and unopened.
type Loop struct {
	sessionID string
	model     string
	tick      time.Duration

	docs     store.DocumentStore
	registry *registry.Registry
	locks    *reviewlock.Manager
	reviewer Reviewer
	selector *Selector

	// activeDocID reports the session's currently open document, "" when idle.
	activeDocID func() string
	now         func() time.Time
	rearm       *debounce.Debouncer

	mu    sync.Mutex
	state State

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLoop wires the loop. reviewer may not be nil; disable the loop by not
// starting it.
func NewLoop(sessionID, model string, tick time.Duration, docs store.DocumentStore, reg *registry.Registry, locks *reviewlock.Manager, reviewer Reviewer, selector *Selector, activeDocID func() string) *Loop {
	return &Loop{
		sessionID:   sessionID,
		model:       model,
		tick:        tick,
		docs:        docs,
		registry:    reg,
		locks:       locks,
		reviewer:    reviewer,
		selector:    selector,
		activeDocID: activeDocID,
		now:         time.Now,
		rearm:       debounce.New(rearmDelay),
		state:       StateIdle,
		stopCh:      make(chan struct{}),
	}
}

// Start runs periodic ticks until the context ends or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopCh:
				return
			case <-ticker.C:
				l.Tick(ctx)
			}
		}
	}()
}

// Stop halts the periodic ticks. An in-flight review call is not cancelled;
// its commit checks decide whether the result still lands.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.rearm.Stop()
}

// Rearm schedules a debounced extra tick. Sessions call this on returning to
// the idle/home state.
func (l *Loop) Rearm(ctx context.Context) {
	l.rearm.Trigger(func() { l.Tick(ctx) })
}

// State reports the loop's current phase.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Tick runs one full pass: select, lock, review, commit. Exported so tests
// can drive the loop deterministically.
func (l *Loop) Tick(ctx context.Context) {
	if l.activeDocID() != "" {
		return
	}
	l.setState(StateSelecting)
	defer l.setState(StateIdle)

	docs, err := l.docs.ListDocuments(ctx)
	if err != nil {
		log.Printf("review: list documents: %v", err)
		return
	}
	candidate, ok := l.selector.Pick(ctx, docs, l.sessionID, l.activeDocID())
	if !ok {
		return
	}

	l.setState(StateLocking)
	docID := candidate.Doc.ID
	if !l.locks.Acquire(ctx, docID, l.sessionID) {
		// Another session is already reviewing it; try again next tick.
		return
	}
	defer l.locks.Release(ctx, docID, l.sessionID)

	l.setState(StateReviewing)
	result, err := l.reviewer.Review(ctx, candidate.HumanText, l.model, Linearize(candidate.Doc.Content))
	if err != nil {
		log.Printf("review: %s failed, cooling down: %v", docID, err)
		l.selector.RecordFailure(docID)
		return
	}

	l.setState(StateCommitting)
	l.commit(ctx, candidate, result)
}

// commit lands the review outcome unless the document was opened or edited
// while the call was in flight, in which case the result is discarded.
func (l *Loop) commit(ctx context.Context, candidate Candidate, result Result) {
	docID := candidate.Doc.ID
	if l.registry.IsOpenAnywhere(ctx, docID, l.sessionID, l.activeDocID()) {
		log.Printf("review: %s opened during review, discarding result", docID)
		return
	}

	now := l.now()
	if len(result.NarrativeBlocks) == 0 {
		if err := l.docs.StampAttempt(ctx, docID, now); err != nil {
			log.Printf("review: stamp attempt %s: %v", docID, err)
		}
		return
	}

	content := candidate.Doc.Content
	block := doc.NewOutputBlock(util.NewOutputID(), now, result.NarrativeBlocks)
	doc.InsertOutputBlock(content, block)

	committed, err := l.docs.CommitReview(ctx, docID, content, now, candidate.Doc.UpdatedAt)
	if err != nil {
		log.Printf("review: commit %s: %v", docID, err)
		return
	}
	if !committed {
		log.Printf("review: %s changed during review, discarding result", docID)
	}
}
