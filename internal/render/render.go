// Package render walks a renderable document tree and emits an HTML
// fragment. Emission is an explicit type switch over the closed node-kind
// set: every supported kind has an arm, and any other kind is a fatal
// error. Content is never silently dropped.
package render

import (
	"errors"
	"fmt"
	"html"
	"strings"

	gast "github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"

	"github.com/alnah/go-pep2html/internal/markup"
)

// ErrUnrenderableNode indicates a node kind the renderer has no emission
// rule for. Unresolved reference nodes and unexpanded directives land here
// when an upstream pass was skipped.
var ErrUnrenderableNode = errors.New("unrenderable node kind")

// Renderer emits HTML for renderable trees. It holds no per-document
// state; one renderer may serve successive documents.
type Renderer struct {
	highlighter *highlighter
}

// New creates a renderer with syntax highlighting enabled.
func New() *Renderer {
	return &Renderer{highlighter: newHighlighter()}
}

// Render emits the HTML fragment for doc. Output is deterministic for a
// given tree: rendering twice yields identical bytes.
func (r *Renderer) Render(source []byte, doc gast.Node) ([]byte, error) {
	var sb strings.Builder
	if err := r.renderNode(&sb, source, doc); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func (r *Renderer) renderChildren(sb *strings.Builder, source []byte, n gast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := r.renderNode(sb, source, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(sb *strings.Builder, source []byte, n gast.Node) error {
	switch v := n.(type) {
	case *gast.Document:
		return r.renderChildren(sb, source, v)

	case *gast.Heading:
		tag := fmt.Sprintf("h%d", v.Level)
		sb.WriteString("<" + tag)
		if id := nodeID(v); id != "" {
			sb.WriteString(` id="` + html.EscapeString(id) + `"`)
		}
		sb.WriteString(">")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</" + tag + ">\n")

	case *gast.Paragraph:
		sb.WriteString("<p>")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</p>\n")

	case *gast.TextBlock:
		return r.renderChildren(sb, source, v)

	case *gast.Blockquote:
		sb.WriteString("<blockquote>\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</blockquote>\n")

	case *gast.List:
		tag := "ul"
		if v.IsOrdered() {
			tag = "ol"
		}
		sb.WriteString("<" + tag)
		if v.IsOrdered() && v.Start > 1 {
			sb.WriteString(fmt.Sprintf(` start="%d"`, v.Start))
		}
		sb.WriteString(">\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</" + tag + ">\n")

	case *gast.ListItem:
		// Compact rendering: an item holding a single paragraph emits
		// without the wrapper to avoid stray vertical spacing.
		sb.WriteString("<li>")
		if wrapper, ok := singleParagraphChild(v); ok {
			if err := r.renderChildren(sb, source, wrapper); err != nil {
				return err
			}
		} else if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</li>\n")

	case *gast.FencedCodeBlock:
		r.renderFencedCode(sb, source, v)

	case *gast.CodeBlock:
		writePlainCode(sb, "", blockLines(source, v))

	case *gast.ThematicBreak:
		sb.WriteString("<hr>\n")

	case *gast.HTMLBlock:
		// Raw passthrough; the sanitizer owns safety.
		sb.WriteString(blockLines(source, v))
		if v.HasClosure() {
			sb.Write(v.ClosureLine.Value(source))
		}

	case *gast.RawHTML:
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			sb.Write(seg.Value(source))
		}

	case *gast.Text:
		sb.WriteString(html.EscapeString(string(v.Segment.Value(source))))
		switch {
		case v.HardLineBreak():
			sb.WriteString("<br>\n")
		case v.SoftLineBreak():
			sb.WriteString("\n")
		}

	case *gast.String:
		sb.WriteString(html.EscapeString(string(v.Value)))

	case *gast.CodeSpan:
		sb.WriteString("<code>")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</code>")

	case *gast.Emphasis:
		tag := "em"
		if v.Level == 2 {
			tag = "strong"
		}
		sb.WriteString("<" + tag + ">")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</" + tag + ">")

	case *gast.Link:
		sb.WriteString(`<a href="` + html.EscapeString(string(v.Destination)) + `"`)
		if len(v.Title) > 0 {
			sb.WriteString(` title="` + html.EscapeString(string(v.Title)) + `"`)
		}
		sb.WriteString(">")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</a>")

	case *gast.AutoLink:
		url := string(v.URL(source))
		if v.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		sb.WriteString(`<a href="` + html.EscapeString(url) + `">`)
		sb.WriteString(html.EscapeString(string(v.Label(source))))
		sb.WriteString("</a>")

	case *gast.Image:
		sb.WriteString(`<img src="` + html.EscapeString(string(v.Destination)) + `"`)
		sb.WriteString(` alt="` + html.EscapeString(plainText(source, v)) + `"`)
		if len(v.Title) > 0 {
			sb.WriteString(` title="` + html.EscapeString(string(v.Title)) + `"`)
		}
		sb.WriteString(">")

	case *extast.Table:
		return r.renderTable(sb, source, v)

	case *extast.TableHeader, *extast.TableRow:
		sb.WriteString("<tr>\n")
		if err := r.renderChildren(sb, source, n); err != nil {
			return err
		}
		sb.WriteString("</tr>\n")

	case *extast.TableCell:
		tag := "td"
		if v.Parent() != nil && v.Parent().Kind() == extast.KindTableHeader {
			tag = "th"
		}
		sb.WriteString("<" + tag)
		if class := alignmentClass(v.Alignment); class != "" {
			sb.WriteString(` class="` + class + `"`)
		}
		sb.WriteString(">")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</" + tag + ">\n")

	case *extast.Strikethrough:
		sb.WriteString("<del>")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</del>")

	case *extast.FootnoteLink:
		id := fmt.Sprintf("fnref:%d", v.Index)
		if v.RefIndex > 1 {
			id = fmt.Sprintf("fnref:%d:%d", v.Index, v.RefIndex)
		}
		sb.WriteString(fmt.Sprintf(`<sup class="footnote-ref"><a href="#fn:%d" id="%s">%d</a></sup>`,
			v.Index, id, v.Index))

	case *extast.FootnoteBacklink:
		sb.WriteString(fmt.Sprintf(`<a href="#fnref:%d" class="footnote-backref">↩</a>`, v.Index))

	case *extast.Footnote:
		sb.WriteString(fmt.Sprintf(`<li id="fn:%d">`, v.Index))
		sb.WriteString("\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</li>\n")

	case *extast.FootnoteList:
		sb.WriteString(`<section class="footnotes">` + "\n<hr>\n<ol>\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</ol>\n</section>\n")

	case *markup.FrontMatter:
		sb.WriteString(`<dl class="front-matter">` + "\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</dl>\n")

	case *markup.FrontMatterField:
		sb.WriteString("<dt>" + html.EscapeString(v.Name) + "</dt>\n<dd>")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</dd>\n")

	case *markup.TOC:
		renderTOC(sb, v)

	case *markup.Banner:
		sb.WriteString(`<div class="banner banner-` + html.EscapeString(v.Class) + `">` + "\n")
		sb.WriteString(`<p class="banner-label">` + html.EscapeString(v.Label) + "</p>\n")
		if err := r.renderChildren(sb, source, v); err != nil {
			return err
		}
		sb.WriteString("</div>\n")

	case *markup.Badge:
		sb.WriteString(`<span class="badge ` + html.EscapeString(v.Class) + `">`)
		sb.WriteString(html.EscapeString(v.Label))
		sb.WriteString("</span>")

	case *markup.Author:
		sb.WriteString(`<span class="author"`)
		if v.Email != "" {
			sb.WriteString(` data-email="` + html.EscapeString(v.Email) + `"`)
		}
		sb.WriteString(">")
		sb.WriteString(html.EscapeString(v.DisplayText()))
		sb.WriteString("</span>")

	case *markup.BrokenRef:
		sb.WriteString(fmt.Sprintf(`<span class="broken-ref" title="no document %d in the corpus">`, v.Number))
		sb.WriteString(html.EscapeString(v.Label))
		sb.WriteString("</span>")

	default:
		return fmt.Errorf("%w: %s", ErrUnrenderableNode, n.Kind())
	}
	return nil
}

// renderTable wraps the header row in thead and the remaining rows in
// tbody.
func (r *Renderer) renderTable(sb *strings.Builder, source []byte, table *extast.Table) error {
	sb.WriteString("<table>\n")
	inBody := false
	for c := table.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Kind() == extast.KindTableHeader {
			sb.WriteString("<thead>\n")
			if err := r.renderNode(sb, source, c); err != nil {
				return err
			}
			sb.WriteString("</thead>\n")
			continue
		}
		if !inBody {
			sb.WriteString("<tbody>\n")
			inBody = true
		}
		if err := r.renderNode(sb, source, c); err != nil {
			return err
		}
	}
	if inBody {
		sb.WriteString("</tbody>\n")
	}
	sb.WriteString("</table>\n")
	return nil
}

// renderFencedCode highlights when the info string names a known language
// and falls back to a plain escaped block otherwise.
func (r *Renderer) renderFencedCode(sb *strings.Builder, source []byte, v *gast.FencedCodeBlock) {
	language := ""
	if l := v.Language(source); l != nil {
		language = string(l)
	}
	code := blockLines(source, v)
	if language != "" {
		var highlighted strings.Builder
		if err := r.highlighter.render(&highlighted, language, code); err == nil {
			sb.WriteString(highlighted.String())
			sb.WriteString("\n")
			return
		}
	}
	writePlainCode(sb, language, code)
}

// renderTOC emits the collapsible navigation widget as nested ordered
// lists. A depth jump of k opens k levels; the intermediate levels carry a
// placeholder item instead of being re-leveled.
func renderTOC(sb *strings.Builder, toc *markup.TOC) {
	entries := toc.Entries
	if len(entries) == 0 {
		return
	}

	base := entries[0].Depth
	for _, e := range entries {
		if e.Depth < base {
			base = e.Depth
		}
	}

	sb.WriteString(`<nav class="contents">` + "\n")
	sb.WriteString("<details open>\n<summary>Contents</summary>\n")

	level := base - 1
	for _, e := range entries {
		if level < e.Depth {
			for level < e.Depth {
				sb.WriteString(`<ol class="toc">`)
				level++
				if level < e.Depth {
					sb.WriteString(`<li class="toc-gap">`)
				}
			}
		} else {
			for level > e.Depth {
				sb.WriteString("</li></ol>")
				level--
			}
			sb.WriteString("</li>")
		}
		sb.WriteString(`<li><a href="#` + html.EscapeString(e.Anchor) + `">`)
		sb.WriteString(html.EscapeString(e.Text))
		sb.WriteString("</a>")
	}
	for level >= base {
		sb.WriteString("</li></ol>")
		level--
	}

	sb.WriteString("\n</details>\n</nav>\n")
}

// alignmentClass maps a table column alignment to a CSS class. Inline
// style attributes would not survive sanitization, so alignment travels as
// a class for the stylesheet to honor.
func alignmentClass(a extast.Alignment) string {
	switch a {
	case extast.AlignLeft:
		return "text-left"
	case extast.AlignRight:
		return "text-right"
	case extast.AlignCenter:
		return "text-center"
	default:
		return ""
	}
}

// singleParagraphChild returns the sole paragraph-like child of a list
// item, if that is all the item holds.
func singleParagraphChild(li *gast.ListItem) (gast.Node, bool) {
	first := li.FirstChild()
	if first == nil || first.NextSibling() != nil {
		return nil, false
	}
	if first.Kind() == gast.KindParagraph || first.Kind() == gast.KindTextBlock {
		return first, true
	}
	return nil, false
}

// nodeID returns the node's id attribute when present.
func nodeID(n gast.Node) string {
	if id, ok := n.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			return string(b)
		}
	}
	return ""
}

// plainText flattens a subtree's literal content, for image alt text.
func plainText(source []byte, n gast.Node) string {
	var sb strings.Builder
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *gast.Text:
			sb.Write(v.Segment.Value(source))
		case *gast.String:
			sb.Write(v.Value)
		}
		return gast.WalkContinue, nil
	})
	return sb.String()
}

// blockLines concatenates a block node's line segments.
func blockLines(source []byte, n gast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}

// writePlainCode emits an escaped code block without highlighting.
func writePlainCode(sb *strings.Builder, language, code string) {
	sb.WriteString("<pre><code")
	if language != "" {
		sb.WriteString(` class="language-` + html.EscapeString(language) + `"`)
	}
	sb.WriteString(">")
	sb.WriteString(html.EscapeString(code))
	sb.WriteString("</code></pre>\n")
}
