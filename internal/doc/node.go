// Package doc holds the provenance-tagged content tree shared by the editor,
// the history stacks, and the review loop.
package doc

import (
	"encoding/json"
	"fmt"
	"time"
)

// Provenance records whether a region originated from the user or from an AI
// generation pass.
type Provenance string

const (
	ProvenanceUnset Provenance = ""
	ProvenanceHuman Provenance = "human"
	ProvenanceAI    Provenance = "ai"
)

// Node types in the content tree.
const (
	TypeDoc       = "doc"
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
	TypeText      = "text"
	TypeAIOutput  = "aiOutput"
)

// Node is one node of the content tree. Provenance and highlight state are
// first-class fields rather than attrs scattered over the tree, so the
// invariants live on the model and not on whatever surface renders it.
type Node struct {
	Type           string     `json:"type"`
	ID             string     `json:"id,omitempty"` // aiOutput blocks only
	Text           string     `json:"text,omitempty"`
	Level          int        `json:"level,omitempty"` // headings only
	Provenance     Provenance `json:"provenance,omitempty"`
	Highlighted    bool       `json:"highlighted,omitempty"`
	Collapsed      bool       `json:"collapsed,omitempty"` // aiOutput blocks only
	HumanUpdatedAt *time.Time `json:"humanUpdatedAt,omitempty"`
	GeneratedAt    *time.Time `json:"generatedAt,omitempty"` // aiOutput blocks only
	Content        []*Node    `json:"content,omitempty"`
}

// NewDocument returns an empty document root.
func NewDocument() *Node {
	return &Node{Type: TypeDoc}
}

// NewParagraph builds a paragraph around the given children.
func NewParagraph(children ...*Node) *Node {
	return &Node{Type: TypeParagraph, Content: children}
}

// NewText builds a text leaf.
func NewText(text string) *Node {
	return &Node{Type: TypeText, Text: text}
}

// Clone returns a deep copy of the subtree. History snapshots depend on this
// for isolation from later edits.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.HumanUpdatedAt != nil {
		t := *n.HumanUpdatedAt
		out.HumanUpdatedAt = &t
	}
	if n.GeneratedAt != nil {
		t := *n.GeneratedAt
		out.GeneratedAt = &t
	}
	if n.Content != nil {
		out.Content = make([]*Node, len(n.Content))
		for i, child := range n.Content {
			out.Content[i] = child.Clone()
		}
	}
	return &out
}

// NodeAt resolves a child-index path from the root. An empty path returns the
// root itself.
func NodeAt(root *Node, path []int) (*Node, bool) {
	node := root
	for _, idx := range path {
		if node == nil || idx < 0 || idx >= len(node.Content) {
			return nil, false
		}
		node = node.Content[idx]
	}
	return node, node != nil
}

// Marshal serializes the subtree to JSON.
func Marshal(n *Node) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	return data, nil
}

// Parse deserializes a content tree.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	return &n, nil
}

// Walk visits the subtree depth-first, parents before children.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Content {
		Walk(child, fn)
	}
}
