package jira

import (
	"fmt"
	"strings"
)

// ADFToText converts an Atlassian Document Format tree to plain text with
// a depth-first visit: paragraphs newline-joined, list items prefixed with
// bullet or ordinal markers, headings separated by blank lines, code
// blocks fenced by blank lines. Unknown node types degrade to visiting
// their children, so new ADF constructs never lose their text.
func ADFToText(doc *ADFNode) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for _, child := range doc.Content {
		visitADF(&child, &b, "")
	}
	return strings.TrimRight(b.String(), "\n")
}

// visitADF appends one block-level node to b. prefix carries the current
// list indentation marker chain.
func visitADF(n *ADFNode, b *strings.Builder, prefix string) {
	switch n.Type {
	case "paragraph":
		b.WriteString(prefix)
		writeInline(n, b)
		b.WriteString("\n")

	case "heading":
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		writeInline(n, b)
		b.WriteString("\n\n")

	case "bulletList":
		for _, item := range n.Content {
			visitListItem(&item, b, prefix+"- ")
		}

	case "orderedList":
		start := 1
		if v, ok := n.Attrs["order"].(float64); ok && v >= 1 {
			start = int(v)
		}
		for i, item := range n.Content {
			visitListItem(&item, b, fmt.Sprintf("%s%d. ", prefix, start+i))
		}

	case "codeBlock":
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		writeInline(n, b)
		b.WriteString("\n\n")

	case "blockquote":
		for _, child := range n.Content {
			visitADF(&child, b, prefix+"> ")
		}

	case "rule":
		b.WriteString("---\n")

	default:
		// Unknown block: visit children so no text is dropped.
		for _, child := range n.Content {
			visitADF(&child, b, prefix)
		}
	}
}

// visitListItem renders a listItem's first paragraph behind the marker and
// any nested blocks indented beneath it.
func visitListItem(item *ADFNode, b *strings.Builder, marker string) {
	first := true
	for _, child := range item.Content {
		if first && child.Type == "paragraph" {
			b.WriteString(marker)
			writeInline(&child, b)
			b.WriteString("\n")
			first = false
			continue
		}
		visitADF(&child, b, strings.Repeat(" ", len(marker)))
		first = false
	}
	if first {
		b.WriteString(marker)
		b.WriteString("\n")
	}
}

// writeInline flattens a node's inline content (text, hard breaks, inline
// containers) into b.
func writeInline(n *ADFNode, b *strings.Builder) {
	for _, child := range n.Content {
		switch child.Type {
		case "text":
			b.WriteString(child.Text)
		case "hardBreak":
			b.WriteString("\n")
		case "emoji":
			if txt, ok := child.Attrs["text"].(string); ok {
				b.WriteString(txt)
			}
		case "mention":
			if txt, ok := child.Attrs["text"].(string); ok {
				b.WriteString(txt)
			}
		default:
			writeInline(&child, b)
		}
	}
}

// TextToADF expands plain text to an ADF document, one paragraph per line.
// The conversion is intentionally lossy and asymmetric with ADFToText:
// round-tripping is semantically close, not byte-for-byte.
func TextToADF(text string) *ADFNode {
	if text == "" {
		return nil
	}

	var content []ADFNode
	for _, line := range strings.Split(text, "\n") {
		para := ADFNode{Type: "paragraph"}
		if line != "" {
			para.Content = []ADFNode{{Type: "text", Text: line}}
		}
		content = append(content, para)
	}

	return &ADFNode{
		Type:    "doc",
		Version: 1,
		Content: content,
	}
}
