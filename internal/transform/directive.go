package transform

import (
	"fmt"
	"strconv"
	"strings"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
	"github.com/alnah/go-pep2html/internal/refs"
)

// DirectiveContext is what a handler sees when expanding one directive
// occurrence. Handlers may append diagnostics to the document and resolve
// links through the shared resolver.
type DirectiveContext struct {
	Doc       *Doc
	Directive *markup.Directive
	Resolver  *refs.Resolver
}

// Handler expands one directive into its replacement node. Returning a nil
// node removes the directive without replacement.
type Handler func(*DirectiveContext) (gast.Node, error)

// DefaultDirectives returns the handler table for the directive names the
// corpus uses. The table is fixed at pipeline construction; there is no
// process-wide registry to mutate.
func DefaultDirectives() map[string]Handler {
	return map[string]Handler{
		"superseded": expandSuperseded,
		"withdrawn":  statusBanner("withdrawn", "Withdrawn"),
		"rejected":   statusBanner("rejected", "Rejected"),
		"deferred":   statusBanner("deferred", "Deferred"),
		"note":       admonition("note", "Note"),
		"important":  admonition("important", "Important"),
		"warning":    admonition("warning", "Warning"),
	}
}

// expandDirectives replaces every directive node through the handler table.
// Occurrences are collected in document order and expanded in reverse, so
// directives nested inside another directive's content expand before their
// parent does. An unrecognized name fails the document.
func (p *Pipeline) expandDirectives(d *Doc) error {
	var directives []*markup.Directive
	_ = gast.Walk(d.Tree, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if entering {
			if dir, ok := n.(*markup.Directive); ok {
				directives = append(directives, dir)
			}
		}
		return gast.WalkContinue, nil
	})

	for i := len(directives) - 1; i >= 0; i-- {
		dir := directives[i]
		handler, ok := p.directives[dir.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDirective, dir.Name)
		}
		replacement, err := handler(&DirectiveContext{Doc: d, Directive: dir, Resolver: p.resolver})
		if err != nil {
			return err
		}
		parent := dir.Parent()
		if parent == nil {
			continue
		}
		if replacement == nil {
			parent.RemoveChild(parent, dir)
			continue
		}
		parent.ReplaceChild(parent, dir, replacement)
	}
	return nil
}

// expandSuperseded builds the banner pointing readers at the replacement
// document. The argument is the replacement's number; it resolves through
// the corpus table so a missing replacement shows a broken marker.
func expandSuperseded(ctx *DirectiveContext) (gast.Node, error) {
	banner := markup.NewBanner("superseded", "Superseded")
	markup.MarkSynthesized(banner)

	lead := gast.NewParagraph()
	arg := strings.TrimSpace(ctx.Directive.Argument)
	if arg == "" {
		lead.AppendChild(lead, str("This document has been superseded."))
	} else {
		number, err := strconv.Atoi(arg)
		if err != nil || number <= 0 {
			return nil, fmt.Errorf("%w: superseded argument %q is not a document number",
				ErrMalformedDirective, arg)
		}
		lead.AppendChild(lead, str("This document has been superseded by "))
		node, diag := ctx.Resolver.Link(ctx.Doc.Info.Header.Number, number, fmt.Sprintf("PEP %d", number))
		if diag != nil {
			ctx.Doc.Diags = append(ctx.Doc.Diags, *diag)
		}
		lead.AppendChild(lead, node)
		lead.AppendChild(lead, str("."))
	}
	banner.AppendChild(banner, lead)
	moveChildren(ctx.Directive, banner)
	return banner, nil
}

// statusBanner builds the handler for a bare status directive. A free-text
// argument follows the lead sentence; directive content carries over into
// the banner.
func statusBanner(class, label string) Handler {
	return func(ctx *DirectiveContext) (gast.Node, error) {
		banner := markup.NewBanner(class, label)
		markup.MarkSynthesized(banner)

		lead := gast.NewParagraph()
		text := "This document has been " + strings.ToLower(label) + "."
		if arg := strings.TrimSpace(ctx.Directive.Argument); arg != "" {
			text += " " + arg
		}
		lead.AppendChild(lead, str(text))
		banner.AppendChild(banner, lead)
		moveChildren(ctx.Directive, banner)
		return banner, nil
	}
}

// admonition builds the handler for note/important/warning callouts. The
// argument, when present, becomes the first content paragraph.
func admonition(class, label string) Handler {
	return func(ctx *DirectiveContext) (gast.Node, error) {
		banner := markup.NewBanner(class, label)
		markup.MarkSynthesized(banner)

		if arg := strings.TrimSpace(ctx.Directive.Argument); arg != "" {
			lead := gast.NewParagraph()
			lead.AppendChild(lead, str(arg))
			banner.AppendChild(banner, lead)
		}
		moveChildren(ctx.Directive, banner)
		return banner, nil
	}
}

// moveChildren reparents every child of src to the end of dst, preserving
// order. AppendChild detaches nodes from their previous parent.
func moveChildren(src, dst gast.Node) {
	for c := src.FirstChild(); c != nil; {
		next := c.NextSibling()
		dst.AppendChild(dst, c)
		c = next
	}
}
