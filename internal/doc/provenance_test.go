package doc

import (
	"strings"
	"testing"
	"time"
)

func TestTagRegionNeverDemotesHuman(t *testing.T) {
	n := NewText("hello")
	TagRegion(n, ProvenanceAI)
	if n.Provenance != ProvenanceAI {
		t.Fatalf("expected ai, got %q", n.Provenance)
	}

	TagRegion(n, ProvenanceHuman)
	if n.Provenance != ProvenanceHuman {
		t.Fatalf("expected human, got %q", n.Provenance)
	}

	// Once human, ai tagging is refused.
	TagRegion(n, ProvenanceAI)
	if n.Provenance != ProvenanceHuman {
		t.Errorf("human node reclassified to %q", n.Provenance)
	}
}

func TestClassifyOnEditStripsEnclosingAI(t *testing.T) {
	text := NewText("generated")
	text.Provenance = ProvenanceAI
	para := NewParagraph(text)
	para.Provenance = ProvenanceAI
	root := NewDocument()
	root.Content = []*Node{para}

	now := time.Now()
	ClassifyOnEdit(root, []int{0, 0}, now)

	if para.Provenance != ProvenanceHuman {
		t.Errorf("enclosing paragraph still %q", para.Provenance)
	}
	if text.Provenance != ProvenanceHuman {
		t.Errorf("edited node still %q", text.Provenance)
	}
	if text.HumanUpdatedAt == nil || !text.HumanUpdatedAt.Equal(now) {
		t.Errorf("edit point not stamped: %v", text.HumanUpdatedAt)
	}
}

func TestClassifyOnEditOutOfRangePath(t *testing.T) {
	root := NewDocument()
	ClassifyOnEdit(root, []int{3}, time.Now()) // must not panic
}

func TestHumanTextExplicitTags(t *testing.T) {
	human := NewText("my words")
	human.Provenance = ProvenanceHuman
	ai := NewText("machine words")
	ai.Provenance = ProvenanceAI
	untagged := NewText("untagged words")

	root := NewDocument()
	root.Content = []*Node{NewParagraph(human), NewParagraph(ai), NewParagraph(untagged)}

	text, _, _ := HumanText(root)
	if !strings.Contains(text, "my words") {
		t.Errorf("missing human text: %q", text)
	}
	if strings.Contains(text, "machine words") {
		t.Errorf("ai text leaked: %q", text)
	}
	// Explicit human tags exist, so untagged content is excluded.
	if strings.Contains(text, "untagged words") {
		t.Errorf("untagged text included despite explicit tags: %q", text)
	}
}

func TestHumanTextFallbackWithoutExplicitTags(t *testing.T) {
	ai := NewText("machine words")
	ai.Provenance = ProvenanceAI
	untagged := NewText("untagged words")

	root := NewDocument()
	root.Content = []*Node{NewParagraph(untagged), NewParagraph(ai)}

	text, _, _ := HumanText(root)
	if !strings.Contains(text, "untagged words") {
		t.Errorf("fallback dropped untagged text: %q", text)
	}
	if strings.Contains(text, "machine words") {
		t.Errorf("ai text leaked: %q", text)
	}
}

func TestHumanTextExcludesOutputBlocks(t *testing.T) {
	note := NewText("typed by a person, long enough to matter")
	root := NewDocument()
	root.Content = []*Node{NewParagraph(note)}
	InsertOutputBlock(root, NewOutputBlock("ai_1", time.Now(), []string{"model opinion"}))

	text, _, _ := HumanText(root)
	if strings.Contains(text, "model opinion") {
		t.Errorf("output block text leaked: %q", text)
	}
	if !strings.Contains(text, "typed by a person") {
		t.Errorf("human text missing: %q", text)
	}
}

func TestHumanTextTimestamps(t *testing.T) {
	early := time.Now().Add(-time.Hour)
	late := time.Now()

	a := NewText("first")
	a.HumanUpdatedAt = &early
	b := NewText("second")
	b.HumanUpdatedAt = &late

	root := NewDocument()
	root.Content = []*Node{NewParagraph(a), NewParagraph(b)}
	InsertOutputBlock(root, NewOutputBlock("ai_1", early, []string{"old review"}))

	_, lastHuman, lastAI := HumanText(root)
	if !lastHuman.Equal(late) {
		t.Errorf("expected latest human stamp %v, got %v", late, lastHuman)
	}
	if !lastAI.Equal(early) {
		t.Errorf("expected ai stamp %v, got %v", early, lastAI)
	}
}
