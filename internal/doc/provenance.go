package doc

import (
	"strings"
	"time"
)

// TagRegion sets the provenance of a node. Reclassifying ai content as human
// is always legal; the reverse direction is refused so that content a human
// touched is never silently presented as AI-authored again.
func TagRegion(n *Node, p Provenance) {
	if n == nil {
		return
	}
	if n.Provenance == ProvenanceHuman && p == ProvenanceAI {
		return
	}
	n.Provenance = p
}

// ClassifyOnEdit walks from the root down to the edit point and strips ai
// tagging from every node on the way, so any block a human typed into stops
// counting as AI-authored. The edit point itself is stamped with the edit
// time.
func ClassifyOnEdit(root *Node, path []int, now time.Time) {
	node := root
	reclassify(node)
	for _, idx := range path {
		if node == nil || idx < 0 || idx >= len(node.Content) {
			return
		}
		node = node.Content[idx]
		reclassify(node)
	}
	if node != nil && node != root {
		t := now
		node.HumanUpdatedAt = &t
	}
}

func reclassify(n *Node) {
	if n != nil && n.Provenance == ProvenanceAI {
		n.Provenance = ProvenanceHuman
	}
}

// HumanText extracts the human-authored text of a document together with the
// most recent human-edit and AI-output timestamps found anywhere in the tree.
// When no node carries an explicit human tag yet, everything outside AI-tagged
// regions counts as human.
func HumanText(root *Node) (string, time.Time, time.Time) {
	var latestHuman, latestAI time.Time
	hasExplicitHuman := false
	Walk(root, func(n *Node) {
		if n.Provenance == ProvenanceHuman {
			hasExplicitHuman = true
		}
		if n.HumanUpdatedAt != nil && n.HumanUpdatedAt.After(latestHuman) {
			latestHuman = *n.HumanUpdatedAt
		}
		if n.GeneratedAt != nil && n.GeneratedAt.After(latestAI) {
			latestAI = *n.GeneratedAt
		}
	})

	var b strings.Builder
	collectHumanText(&b, root, ProvenanceUnset, hasExplicitHuman)
	return strings.TrimSpace(b.String()), latestHuman, latestAI
}

// collectHumanText accumulates text nodes by effective provenance. A node
// inherits provenance from its nearest tagged ancestor; aiOutput blocks count
// as ai unless reclassified human.
func collectHumanText(b *strings.Builder, n *Node, inherited Provenance, explicitOnly bool) {
	if n == nil {
		return
	}
	effective := inherited
	if n.Provenance != ProvenanceUnset {
		effective = n.Provenance
	}
	if n.Type == TypeAIOutput && n.Provenance != ProvenanceHuman {
		effective = ProvenanceAI
	}

	if n.Type == TypeText {
		if effective == ProvenanceAI {
			return
		}
		if explicitOnly && effective != ProvenanceHuman {
			return
		}
		b.WriteString(n.Text)
		return
	}

	for _, child := range n.Content {
		collectHumanText(b, child, effective, explicitOnly)
	}
	if n.Type == TypeParagraph || n.Type == TypeHeading {
		b.WriteString("\n")
	}
}
