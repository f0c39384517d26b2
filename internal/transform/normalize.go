package transform

import (
	"strconv"
	"strings"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/dateutil"
	"github.com/alnah/go-pep2html/internal/markup"
)

// normalizeHeader synthesizes the front-matter block from parsed metadata
// and inserts it as the document's first child. The PEP and Title rows are
// temporary; title promotion lifts them out again. Idempotent: a document
// that already has a front-matter block is left untouched.
func (p *Pipeline) normalizeHeader(d *Doc) error {
	if findChildKind(d.Tree, markup.KindFrontMatter) != nil {
		return nil
	}

	fm := markup.NewFrontMatter()
	markup.MarkSynthesized(fm)

	h := d.Info.Header
	fm.AppendChild(fm, fieldOf("PEP", str(strconv.Itoa(h.Number))))
	fm.AppendChild(fm, fieldOf("Title", str(h.Title)))

	authorField := markup.NewFrontMatterField("Author")
	for i, a := range h.Authors {
		if i > 0 {
			authorField.AppendChild(authorField, str(", "))
		}
		authorField.AppendChild(authorField, markup.NewAuthor(a.Name, a.Email))
	}
	fm.AppendChild(fm, authorField)

	fm.AppendChild(fm, fieldOf("Status", markup.NewBadge(badgeClass("status", h.Status), h.Status)))
	fm.AppendChild(fm, fieldOf("Type", markup.NewBadge(badgeClass("kind", h.Kind), h.Kind)))
	if len(h.Topic) > 0 {
		fm.AppendChild(fm, fieldOf("Topic", str(strings.Join(h.Topic, ", "))))
	}
	fm.AppendChild(fm, fieldOf("Created", str(dateutil.FormatDisplay(h.Created))))
	if h.PythonVersion != "" {
		fm.AppendChild(fm, fieldOf("Python-Version", str(h.PythonVersion)))
	}
	if len(h.PostHistory) > 0 {
		fm.AppendChild(fm, fieldOf("Post-History", str(strings.Join(h.PostHistory, ", "))))
	}
	if h.DiscussionsTo != "" {
		fm.AppendChild(fm, fieldOf("Discussions-To", contactNode(h.DiscussionsTo)))
	}
	if h.Resolution != "" {
		fm.AppendChild(fm, fieldOf("Resolution", contactNode(h.Resolution)))
	}

	if first := d.Tree.FirstChild(); first != nil {
		d.Tree.InsertBefore(d.Tree, first, fm)
	} else {
		d.Tree.AppendChild(d.Tree, fm)
	}
	return nil
}

// fieldOf builds a single-value front-matter row.
func fieldOf(name string, value gast.Node) *markup.FrontMatterField {
	field := markup.NewFrontMatterField(name)
	field.AppendChild(field, value)
	return field
}

// badgeClass derives the CSS class for a status or category chip, e.g.
// "status-draft" or "kind-standards-track".
func badgeClass(prefix, value string) string {
	return prefix + "-" + strings.ReplaceAll(strings.ToLower(value), " ", "-")
}

// contactNode renders a contact value as the node fitting its shape: a
// hyperlink for URLs, a mailto link for addresses, plain text otherwise.
func contactNode(value string) gast.Node {
	switch {
	case strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "http://"):
		return linkNode(value, value)
	case strings.Contains(value, "@"):
		return linkNode("mailto:"+value, value)
	default:
		return str(value)
	}
}
