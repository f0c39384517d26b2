// Package refs resolves proposal and RFC references against the corpus
// metadata table. Internal references rewrite to hyperlinks when the target
// exists and to visible broken-reference markers when it does not; every
// broken reference is recorded as a diagnostic, never dropped.
package refs

import (
	"fmt"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
)

// Default URL templates. The document template takes the proposal number as
// a single integer verb; the RFC template points at the IETF datatracker.
const (
	DefaultDocumentURL = "/pep-%04d/"
	DefaultRFCURL      = "https://datatracker.ietf.org/doc/html/rfc%d"
)

// Target is one resolvable corpus document. A non-empty URL overrides the
// template-derived canonical URL for this document only.
type Target struct {
	Number int
	Title  string
	URL    string
}

// Diagnostic records a reference whose target is absent from the corpus.
type Diagnostic struct {
	Source  int
	Target  int
	Label   string
	Message string
}

// Resolver maps reference numbers to link targets. It is built once per run,
// after the metadata phase has populated the corpus table, and is then
// shared read-only by all document pipelines.
type Resolver struct {
	targets     map[int]Target
	documentURL string
	rfcURL      string
}

// New creates a resolver over targets. Empty templates fall back to the
// package defaults.
func New(targets map[int]Target, documentURL, rfcURL string) *Resolver {
	if documentURL == "" {
		documentURL = DefaultDocumentURL
	}
	if rfcURL == "" {
		rfcURL = DefaultRFCURL
	}
	owned := make(map[int]Target, len(targets))
	for n, t := range targets {
		owned[n] = t
	}
	return &Resolver{targets: owned, documentURL: documentURL, rfcURL: rfcURL}
}

// Lookup returns the target registered for number.
func (r *Resolver) Lookup(number int) (Target, bool) {
	t, ok := r.targets[number]
	return t, ok
}

// DocumentURL renders the canonical URL for a proposal number. A target
// registered with its own URL wins over the template.
func (r *Resolver) DocumentURL(number int) string {
	if t, ok := r.targets[number]; ok && t.URL != "" {
		return t.URL
	}
	return fmt.Sprintf(r.documentURL, number)
}

// RFCURL renders the external URL for an RFC number.
func (r *Resolver) RFCURL(number int) string {
	return fmt.Sprintf(r.rfcURL, number)
}

// Link builds the node for a reference from document source to a proposal
// number: a titled hyperlink when the corpus has the target, a broken-
// reference marker plus diagnostic when it does not.
func (r *Resolver) Link(source, number int, label string) (gast.Node, *Diagnostic) {
	target, ok := r.targets[number]
	if !ok {
		return markup.NewBrokenRef(number, label), &Diagnostic{
			Source:  source,
			Target:  number,
			Label:   label,
			Message: fmt.Sprintf("%q refers to document %d, which is not in the corpus", label, number),
		}
	}
	link := gast.NewLink()
	link.Destination = []byte(r.DocumentURL(number))
	link.Title = []byte(target.Title)
	link.AppendChild(link, gast.NewString([]byte(label)))
	return link, nil
}

// RFCLink builds the external hyperlink for an RFC reference. No corpus
// lookup is involved.
func (r *Resolver) RFCLink(number int, label string) gast.Node {
	link := gast.NewLink()
	link.Destination = []byte(r.RFCURL(number))
	link.AppendChild(link, gast.NewString([]byte(label)))
	return link
}

// Resolve rewrites every reference node under tree in a single pass and
// returns diagnostics for broken internal references. Subtrees of existing
// links are skipped, so generated links are never re-resolved; broken
// markers from an earlier pass are left as they are.
func (r *Resolver) Resolve(source int, tree gast.Node) []Diagnostic {
	var refs []gast.Node
	_ = gast.Walk(tree, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch n.Kind() {
		case gast.KindLink, gast.KindAutoLink:
			return gast.WalkSkipChildren, nil
		case markup.KindProposalRef, markup.KindRFCRef:
			refs = append(refs, n)
		}
		return gast.WalkContinue, nil
	})

	var diags []Diagnostic
	for _, n := range refs {
		parent := n.Parent()
		if parent == nil {
			continue
		}
		var replacement gast.Node
		switch ref := n.(type) {
		case *markup.ProposalRef:
			node, diag := r.Link(source, ref.Number, ref.Label)
			if diag != nil {
				diags = append(diags, *diag)
			}
			replacement = node
		case *markup.RFCRef:
			replacement = r.RFCLink(ref.Number, ref.Label)
		default:
			continue
		}
		parent.ReplaceChild(parent, n, replacement)
	}
	return diags
}
