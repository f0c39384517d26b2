package transform

import (
	"fmt"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
)

// fingerprintDisplayLen is how much of the content fingerprint the footer
// shows. The full value lives in the fingerprint table.
const fingerprintDisplayLen = 12

// synthesizeFooter appends the provenance section: a Source heading, the
// canonical source name with the content fingerprint, and the corpus
// relationships as resolved links. Broken relationship targets show as
// broken-reference markers and are recorded as diagnostics. The section
// carries no timestamps so output stays byte-stable across runs.
// Idempotent: detected through the tagged Source heading.
func (p *Pipeline) synthesizeFooter(d *Doc) error {
	if footerPresent(d.Tree) {
		return nil
	}

	heading := gast.NewHeading(2)
	heading.SetAttributeString("id", []byte("source"))
	markup.MarkSynthesized(heading)
	heading.AppendChild(heading, str("Source"))
	d.Tree.AppendChild(d.Tree, heading)

	provenance := gast.NewParagraph()
	markup.MarkSynthesized(provenance)
	name := gast.NewCodeSpan()
	name.AppendChild(name, str(d.Info.SourceName))
	provenance.AppendChild(provenance, name)
	fp := d.Info.Fingerprint
	if len(fp) > fingerprintDisplayLen {
		fp = fp[:fingerprintDisplayLen]
	}
	provenance.AppendChild(provenance, str(", content fingerprint "+fp))
	d.Tree.AppendChild(d.Tree, provenance)

	h := d.Info.Header
	relations := []struct {
		label string
		ids   []int
	}{
		{"Requires", h.Requires},
		{"Replaces", h.Replaces},
		{"Superseded-By", h.SupersededBy},
	}
	for _, rel := range relations {
		if len(rel.ids) == 0 {
			continue
		}
		para := gast.NewParagraph()
		markup.MarkSynthesized(para)
		para.AppendChild(para, str(rel.label+": "))
		for i, id := range rel.ids {
			if i > 0 {
				para.AppendChild(para, str(", "))
			}
			node, diag := p.resolver.Link(h.Number, id, fmt.Sprintf("PEP %d", id))
			if diag != nil {
				d.Diags = append(d.Diags, *diag)
			}
			para.AppendChild(para, node)
		}
		d.Tree.AppendChild(d.Tree, para)
	}
	return nil
}

// footerPresent reports whether the synthesized Source heading exists.
func footerPresent(tree *gast.Document) bool {
	for c := tree.FirstChild(); c != nil; c = c.NextSibling() {
		h, ok := c.(*gast.Heading)
		if !ok || h.Level != 2 || !markup.IsSynthesized(h) {
			continue
		}
		if headingAnchor(h) == "source" {
			return true
		}
	}
	return false
}
