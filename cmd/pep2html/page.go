package main

import (
	"bytes"
	"fmt"
	"html/template"

	pep2html "github.com/alnah/go-pep2html"
	"github.com/alnah/go-pep2html/internal/index"
)

// pageData feeds the page template. Content is already sanitized by the
// build pipeline; marking it template.HTML keeps it from being escaped a
// second time.
type pageData struct {
	Title   string
	Style   template.CSS
	Content template.HTML
}

// pageWriter wraps sanitized fragments in the page template with the
// selected stylesheet inlined.
type pageWriter struct {
	tmpl  *template.Template
	style template.CSS
}

// newPageWriter parses the page template once for the whole run.
func newPageWriter(templateText, style string) (*pageWriter, error) {
	tmpl, err := template.New("page").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return &pageWriter{tmpl: tmpl, style: template.CSS(style)}, nil
}

// Render produces a complete HTML page for one rendered document.
func (p *pageWriter) Render(doc *pep2html.RenderedDocument) ([]byte, error) {
	var buf bytes.Buffer
	err := p.tmpl.Execute(&buf, pageData{
		Title:   pageTitle(doc),
		Style:   p.style,
		Content: template.HTML(doc.HTML), // #nosec G203 -- sanitized upstream
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

// pageTitle matches the promoted document heading; the index page keeps
// its bare title.
func pageTitle(doc *pep2html.RenderedDocument) string {
	if doc.Number == index.Number {
		return doc.Title
	}
	return fmt.Sprintf("PEP %d – %s", doc.Number, doc.Title)
}
