// Package markup assembles the markdown engine used for proposal bodies:
// goldmark with table, strikethrough, linkify, and footnote support, a block
// parser for `.. name:: argument` directives, and an inline tokenizer that
// lifts `PEP N` / `RFC N` text spans into typed reference nodes.
//
// The package also owns the custom node kinds that later pipeline passes
// synthesize (front matter, badges, banners, table of contents). Keeping
// every kind here gives the renderer one closed set to dispatch over.
package markup

import (
	"fmt"
	"strconv"
	"strings"

	gast "github.com/yuin/goldmark/ast"
)

// Node kinds introduced on top of goldmark's built-in set.
var (
	KindDirective        = gast.NewNodeKind("Directive")
	KindProposalRef      = gast.NewNodeKind("ProposalRef")
	KindRFCRef           = gast.NewNodeKind("RFCRef")
	KindBrokenRef        = gast.NewNodeKind("BrokenRef")
	KindFrontMatter      = gast.NewNodeKind("FrontMatter")
	KindFrontMatterField = gast.NewNodeKind("FrontMatterField")
	KindTOC              = gast.NewNodeKind("TOC")
	KindBanner           = gast.NewNodeKind("Banner")
	KindBadge            = gast.NewNodeKind("Badge")
	KindAuthor           = gast.NewNodeKind("Author")
)

// syntheticAttr marks nodes inserted by pipeline passes so re-running a pass
// can tell its own output from source content.
const syntheticAttr = "synthesized"

// MarkSynthesized tags n as pipeline-generated.
func MarkSynthesized(n gast.Node) {
	n.SetAttributeString(syntheticAttr, []byte("1"))
}

// IsSynthesized reports whether n was tagged by MarkSynthesized.
func IsSynthesized(n gast.Node) bool {
	_, ok := n.AttributeString(syntheticAttr)
	return ok
}

// Directive is a block-level `.. name:: argument` extension. Indented lines
// following the marker are parsed as ordinary blocks and become children.
type Directive struct {
	gast.BaseBlock
	Name     string
	Argument string
}

// NewDirective creates a directive block node.
func NewDirective(name, argument string) *Directive {
	return &Directive{Name: name, Argument: argument}
}

// Kind implements gast.Node.
func (n *Directive) Kind() gast.NodeKind { return KindDirective }

// Dump implements gast.Node.
func (n *Directive) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Name":     n.Name,
		"Argument": n.Argument,
	}, nil)
}

// ProposalRef is an inline reference to a corpus document, produced by the
// reference tokenizer. Label keeps the original display text.
type ProposalRef struct {
	gast.BaseInline
	Number int
	Label  string
}

// NewProposalRef creates a proposal reference node.
func NewProposalRef(number int, label string) *ProposalRef {
	return &ProposalRef{Number: number, Label: label}
}

// Kind implements gast.Node.
func (n *ProposalRef) Kind() gast.NodeKind { return KindProposalRef }

// Dump implements gast.Node.
func (n *ProposalRef) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Number": strconv.Itoa(n.Number),
		"Label":  n.Label,
	}, nil)
}

// RFCRef is an inline reference to an IETF RFC. It always resolves through
// the external URL template, without a corpus lookup.
type RFCRef struct {
	gast.BaseInline
	Number int
	Label  string
}

// NewRFCRef creates an RFC reference node.
func NewRFCRef(number int, label string) *RFCRef {
	return &RFCRef{Number: number, Label: label}
}

// Kind implements gast.Node.
func (n *RFCRef) Kind() gast.NodeKind { return KindRFCRef }

// Dump implements gast.Node.
func (n *RFCRef) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Number": strconv.Itoa(n.Number),
		"Label":  n.Label,
	}, nil)
}

// BrokenRef marks a proposal reference whose target is not in the corpus.
// It renders as a visible marker rather than being dropped.
type BrokenRef struct {
	gast.BaseInline
	Number int
	Label  string
}

// NewBrokenRef creates a broken-reference marker node.
func NewBrokenRef(number int, label string) *BrokenRef {
	return &BrokenRef{Number: number, Label: label}
}

// Kind implements gast.Node.
func (n *BrokenRef) Kind() gast.NodeKind { return KindBrokenRef }

// Dump implements gast.Node.
func (n *BrokenRef) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Number": strconv.Itoa(n.Number),
		"Label":  n.Label,
	}, nil)
}

// FrontMatter is the synthesized metadata block at the top of a document.
// Children are FrontMatterField nodes in display order.
type FrontMatter struct {
	gast.BaseBlock
}

// NewFrontMatter creates an empty front-matter block.
func NewFrontMatter() *FrontMatter {
	return &FrontMatter{}
}

// Kind implements gast.Node.
func (n *FrontMatter) Kind() gast.NodeKind { return KindFrontMatter }

// Dump implements gast.Node.
func (n *FrontMatter) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, nil, nil)
}

// FrontMatterField is one name/value row of the front matter. Children are
// inline nodes forming the displayed value.
type FrontMatterField struct {
	gast.BaseBlock
	Name string
}

// NewFrontMatterField creates a named front-matter row.
func NewFrontMatterField(name string) *FrontMatterField {
	return &FrontMatterField{Name: name}
}

// Kind implements gast.Node.
func (n *FrontMatterField) Kind() gast.NodeKind { return KindFrontMatterField }

// Dump implements gast.Node.
func (n *FrontMatterField) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

// TOCEntry is one line of the synthesized outline.
type TOCEntry struct {
	Text   string
	Anchor string
	Depth  int
}

// TOC is the synthesized table-of-contents block. It carries the outline
// directly instead of child nodes; depth jumps in the source are preserved.
type TOC struct {
	gast.BaseBlock
	Entries []TOCEntry
}

// NewTOC creates a table-of-contents block.
func NewTOC(entries []TOCEntry) *TOC {
	return &TOC{Entries: entries}
}

// Kind implements gast.Node.
func (n *TOC) Kind() gast.NodeKind { return KindTOC }

// Dump implements gast.Node.
func (n *TOC) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Entries": strconv.Itoa(len(n.Entries)),
	}, nil)
}

// Banner is a styled callout produced by directive expansion. Children are
// the callout's content blocks.
type Banner struct {
	gast.BaseBlock
	Class string
	Label string
}

// NewBanner creates a banner block.
func NewBanner(class, label string) *Banner {
	return &Banner{Class: class, Label: label}
}

// Kind implements gast.Node.
func (n *Banner) Kind() gast.NodeKind { return KindBanner }

// Dump implements gast.Node.
func (n *Banner) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Class": n.Class,
		"Label": n.Label,
	}, nil)
}

// Badge is an inline status or category chip in the front matter.
type Badge struct {
	gast.BaseInline
	Class string
	Label string
}

// NewBadge creates a badge node.
func NewBadge(class, text string) *Badge {
	return &Badge{Class: class, Label: text}
}

// Kind implements gast.Node.
func (n *Badge) Kind() gast.NodeKind { return KindBadge }

// Dump implements gast.Node.
func (n *Badge) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Class": n.Class,
		"Text":  n.Label,
	}, nil)
}

// Author is an inline author credit. The plain-text rendering masks the
// email; the machine-readable form survives in a data attribute.
type Author struct {
	gast.BaseInline
	Name  string
	Email string
}

// NewAuthor creates an author node.
func NewAuthor(name, email string) *Author {
	return &Author{Name: name, Email: email}
}

// Kind implements gast.Node.
func (n *Author) Kind() gast.NodeKind { return KindAuthor }

// Dump implements gast.Node.
func (n *Author) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Name":  n.Name,
		"Email": n.Email,
	}, nil)
}

// MaskedEmail returns the email with "@" spelled out, the form shown to
// readers. Empty when the author has no email.
func (n *Author) MaskedEmail() string {
	if n.Email == "" {
		return ""
	}
	return strings.Replace(n.Email, "@", " at ", 1)
}

// DisplayText returns the reader-facing text for the author credit.
func (n *Author) DisplayText() string {
	switch {
	case n.Name != "" && n.Email != "":
		return fmt.Sprintf("%s (%s)", n.Name, n.MaskedEmail())
	case n.Name != "":
		return n.Name
	default:
		return n.MaskedEmail()
	}
}
