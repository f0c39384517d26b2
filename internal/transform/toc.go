package transform

import (
	"strings"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
)

// synthesizeTOC collects body headings in document order into the outline
// and inserts the navigation node between the front matter and the first
// body block. Depth jumps stay as authored; the renderer copes with
// irregular nesting. Documents without body headings get no TOC node.
// Idempotent: an existing TOC node is reused as-is.
func (p *Pipeline) synthesizeTOC(d *Doc) error {
	if existing := findChildKind(d.Tree, markup.KindTOC); existing != nil {
		d.TOC = existing.(*markup.TOC).Entries
		return nil
	}

	var entries []markup.TOCEntry
	_ = gast.Walk(d.Tree, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		h, ok := n.(*gast.Heading)
		if !ok || markup.IsSynthesized(h) {
			return gast.WalkContinue, nil
		}
		entries = append(entries, markup.TOCEntry{
			Text:   headingText(h, d.Source),
			Anchor: headingAnchor(h),
			Depth:  h.Level,
		})
		return gast.WalkContinue, nil
	})

	d.TOC = entries
	if len(entries) == 0 {
		return nil
	}

	toc := markup.NewTOC(entries)
	markup.MarkSynthesized(toc)
	insertAfterFrontMatter(d.Tree, toc)
	return nil
}

// headingText flattens a heading's inline content to plain text. Resolved
// references contribute their labels through their String children.
func headingText(h *gast.Heading, source []byte) string {
	var sb strings.Builder
	_ = gast.Walk(h, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *gast.Text:
			sb.Write(v.Segment.Value(source))
		case *gast.String:
			sb.Write(v.Value)
		case *markup.ProposalRef:
			sb.WriteString(v.Label)
		case *markup.RFCRef:
			sb.WriteString(v.Label)
		case *markup.BrokenRef:
			sb.WriteString(v.Label)
		}
		return gast.WalkContinue, nil
	})
	return sb.String()
}

// headingAnchor returns the heading's id attribute, set either by the
// automatic heading-id parser option or by a synthesis pass.
func headingAnchor(h *gast.Heading) string {
	if id, ok := h.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			return string(b)
		}
	}
	return ""
}

// insertAfterFrontMatter places node after the front-matter block, falling
// back to after the promoted title, then to the document head.
func insertAfterFrontMatter(tree *gast.Document, node gast.Node) {
	anchor := findChildKind(tree, markup.KindFrontMatter)
	if anchor == nil {
		if title := promotedTitle(tree); title != nil {
			anchor = title
		}
	}
	if anchor == nil {
		if first := tree.FirstChild(); first != nil {
			tree.InsertBefore(tree, first, node)
		} else {
			tree.AppendChild(tree, node)
		}
		return
	}
	if next := anchor.NextSibling(); next != nil {
		tree.InsertBefore(tree, next, node)
	} else {
		tree.AppendChild(tree, node)
	}
}
