package transform

import (
	"fmt"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
)

// promoteTitle lifts the PEP and Title rows out of the front matter and
// synthesizes the document's single top-level heading ahead of it. A
// top-level heading already present in the body would make two, which marks
// a malformed source and fails the document. Idempotent: the synthesized
// heading is tagged and detected on re-entry.
func (p *Pipeline) promoteTitle(d *Doc) error {
	if promotedTitle(d.Tree) != nil {
		return nil
	}

	var dup error
	_ = gast.Walk(d.Tree, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if h, ok := n.(*gast.Heading); ok && h.Level == 1 && !markup.IsSynthesized(h) {
			dup = fmt.Errorf("%w: %q", ErrDuplicateTitle, headingText(h, d.Source))
			return gast.WalkStop, nil
		}
		return gast.WalkContinue, nil
	})
	if dup != nil {
		return dup
	}

	if fm := findChildKind(d.Tree, markup.KindFrontMatter); fm != nil {
		for c := fm.FirstChild(); c != nil; {
			next := c.NextSibling()
			if f, ok := c.(*markup.FrontMatterField); ok && (f.Name == "PEP" || f.Name == "Title") {
				fm.RemoveChild(fm, c)
			}
			c = next
		}
	}

	h := d.Info.Header
	title := gast.NewHeading(1)
	title.SetAttributeString("id", []byte(fmt.Sprintf("pep-%d", h.Number)))
	markup.MarkSynthesized(title)
	title.AppendChild(title, str(fmt.Sprintf("PEP %d – %s", h.Number, h.Title)))

	if first := d.Tree.FirstChild(); first != nil {
		d.Tree.InsertBefore(d.Tree, first, title)
	} else {
		d.Tree.AppendChild(d.Tree, title)
	}
	return nil
}

// promotedTitle returns the synthesized top-level heading, or nil.
func promotedTitle(tree *gast.Document) *gast.Heading {
	for c := tree.FirstChild(); c != nil; c = c.NextSibling() {
		if h, ok := c.(*gast.Heading); ok && h.Level == 1 && markup.IsSynthesized(h) {
			return h
		}
	}
	return nil
}
