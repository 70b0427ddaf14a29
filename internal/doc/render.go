package doc

import (
	"fmt"
	"html"
	"strings"
)

// RenderHTML projects the content tree to HTML. This is the only place the
// model meets a presentation surface; provenance and collapse state come out
// as attributes so any frontend can style them.
func RenderHTML(root *Node) string {
	if root == nil {
		return ""
	}
	return renderNode(root)
}

func renderNode(n *Node) string {
	switch n.Type {
	case TypeDoc:
		return renderChildren(n)
	case TypeParagraph:
		return fmt.Sprintf("<p%s>%s</p>\n", provenanceAttr(n), renderChildren(n))
	case TypeHeading:
		level := n.Level
		if level < 1 || level > 6 {
			level = 1
		}
		return fmt.Sprintf("<h%d%s>%s</h%d>\n", level, provenanceAttr(n), renderChildren(n), level)
	case TypeText:
		text := html.EscapeString(n.Text)
		if n.Highlighted {
			text = fmt.Sprintf("<mark>%s</mark>", text)
		}
		if n.Provenance == ProvenanceAI {
			text = fmt.Sprintf(`<span data-provenance="ai">%s</span>`, text)
		}
		return text
	case TypeAIOutput:
		open := ""
		if !n.Collapsed {
			open = " open"
		}
		return fmt.Sprintf("<details data-ai-output=\"%s\"%s><summary>AI review</summary>\n%s</details>\n",
			html.EscapeString(n.ID), open, renderChildren(n))
	default:
		// Unknown node type - render content if any
		return renderChildren(n)
	}
}

func renderChildren(n *Node) string {
	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(renderNode(child))
	}
	return b.String()
}

func provenanceAttr(n *Node) string {
	if n.Provenance == ProvenanceUnset {
		return ""
	}
	return fmt.Sprintf(` data-provenance=%q`, string(n.Provenance))
}
