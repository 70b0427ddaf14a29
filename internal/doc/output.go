package doc

import "time"

// NewOutputBlock builds an aiOutput block from review narrative paragraphs.
// Every descendant is tagged ai so a later dissolve can tell generated content
// apart from anything the user edits into the block.
func NewOutputBlock(id string, generatedAt time.Time, paragraphs []string) *Node {
	block := &Node{
		Type:        TypeAIOutput,
		ID:          id,
		Provenance:  ProvenanceAI,
		GeneratedAt: &generatedAt,
	}
	for _, text := range paragraphs {
		textNode := NewText(text)
		textNode.Provenance = ProvenanceAI
		para := NewParagraph(textNode)
		para.Provenance = ProvenanceAI
		block.Content = append(block.Content, para)
	}
	return block
}

// InsertOutputBlock appends a new aiOutput block to the document. Every other
// output block is collapsed first; only the newest block is expanded.
func InsertOutputBlock(root, block *Node) {
	Walk(root, func(n *Node) {
		if n.Type == TypeAIOutput {
			n.Collapsed = true
		}
	})
	block.Collapsed = false
	root.Content = append(root.Content, block)
}

// ToggleOutputBlock flips the collapse state of exactly the targeted block.
// Returns false if no block with the id exists.
func ToggleOutputBlock(root *Node, id string) bool {
	block := findOutputBlock(root, id)
	if block == nil {
		return false
	}
	block.Collapsed = !block.Collapsed
	return true
}

// DissolveOutputBlock removes an aiOutput block boundary, scrubbing AI-only
// descendants while keeping human-tagged and highlighted content in place.
// The survivors are spliced into the parent where the block stood.
func DissolveOutputBlock(root *Node, id string) bool {
	parent, idx := findOutputBlockParent(root, id)
	if parent == nil {
		return false
	}
	block := parent.Content[idx]
	kept := keepDemoted(block.Content)

	content := make([]*Node, 0, len(parent.Content)-1+len(kept))
	content = append(content, parent.Content[:idx]...)
	content = append(content, kept...)
	content = append(content, parent.Content[idx+1:]...)
	parent.Content = content
	return true
}

// keepDemoted filters a subtree down to nodes worth preserving: explicitly
// human content, highlighted content, and any ancestors needed to hold them.
func keepDemoted(nodes []*Node) []*Node {
	var kept []*Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Highlighted {
			// A highlighted excerpt survives whole, children included.
			kept = append(kept, n)
			continue
		}
		n.Content = keepDemoted(n.Content)
		if n.Provenance == ProvenanceHuman || len(n.Content) > 0 {
			kept = append(kept, n)
		}
	}
	return kept
}

// Rehydrate re-imposes derived state on content restored from a snapshot: at
// most the newest aiOutput block may remain expanded.
func Rehydrate(root *Node) {
	blocks := OutputBlocks(root)
	if len(blocks) == 0 {
		return
	}
	newest := blocks[0]
	for _, b := range blocks[1:] {
		if generatedAfter(b, newest) {
			newest = b
		}
	}
	for _, b := range blocks {
		if b != newest {
			b.Collapsed = true
		}
	}
}

// OutputBlocks lists the aiOutput blocks in document order.
func OutputBlocks(root *Node) []*Node {
	var blocks []*Node
	Walk(root, func(n *Node) {
		if n.Type == TypeAIOutput {
			blocks = append(blocks, n)
		}
	})
	return blocks
}

func generatedAfter(a, b *Node) bool {
	if a.GeneratedAt == nil {
		return false
	}
	if b.GeneratedAt == nil {
		return true
	}
	return a.GeneratedAt.After(*b.GeneratedAt)
}

func findOutputBlock(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) {
		if found == nil && n.Type == TypeAIOutput && n.ID == id {
			found = n
		}
	})
	return found
}

func findOutputBlockParent(root *Node, id string) (*Node, int) {
	var parent *Node
	idx := -1
	Walk(root, func(n *Node) {
		if parent != nil {
			return
		}
		for i, child := range n.Content {
			if child.Type == TypeAIOutput && child.ID == id {
				parent = n
				idx = i
				return
			}
		}
	})
	return parent, idx
}
