// Package review decides which idle document gets an autonomous AI review
// pass, runs it, and commits the outcome without trampling concurrent edits.
package review

import (
	"context"
	"strings"

	"inkwell/internal/doc"
)

// Turn roles for the linearized conversation context.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Turn is one human- or AI-authored stretch of the document, in order.
type Turn struct {
	Role string
	Text string
}

// TurnList is the linearized context handed to the reviewer.
type TurnList []Turn

// SearchResult is one reference surfaced by the review pipeline.
type SearchResult struct {
	Title string
	URL   string
}

// Result is the review outcome. NarrativeBlocks become the paragraphs of the
// inserted output block; an empty result is a valid "nothing to add" outcome.
type Result struct {
	SearchResults   []SearchResult
	NarrativeBlocks []string
}

// Reviewer invokes the AI pipeline against extracted human text. The loop
// depends only on this shape, never on how the result is produced.
type Reviewer interface {
	Review(ctx context.Context, humanText, model string, turns TurnList) (Result, error)
}

// Linearize flattens a document into alternating human/AI turns: each aiOutput
// block is one AI turn, everything between them coalesces into human turns.
func Linearize(root *doc.Node) TurnList {
	if root == nil {
		return nil
	}
	var turns TurnList
	var human strings.Builder

	flush := func() {
		text := strings.TrimSpace(human.String())
		if text != "" {
			turns = append(turns, Turn{Role: RoleHuman, Text: text})
		}
		human.Reset()
	}

	for _, node := range root.Content {
		if node.Type == doc.TypeAIOutput {
			flush()
			if text := strings.TrimSpace(subtreeText(node)); text != "" {
				turns = append(turns, Turn{Role: RoleAI, Text: text})
			}
			continue
		}
		human.WriteString(subtreeText(node))
		human.WriteString("\n")
	}
	flush()
	return turns
}

func subtreeText(n *doc.Node) string {
	var b strings.Builder
	doc.Walk(n, func(child *doc.Node) {
		if child.Type == doc.TypeText {
			b.WriteString(child.Text)
			b.WriteString(" ")
		}
	})
	return strings.TrimSpace(b.String())
}
