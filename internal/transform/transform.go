// Package transform runs the fixed-order tree-rewriting passes that take a
// parsed proposal body from its raw form to a renderable one: reference
// resolution, header normalization, title promotion, table-of-contents and
// footer synthesis, and directive expansion. Every pass is idempotent and
// total; a state machine enforces the order.
package transform

import (
	"errors"
	"fmt"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/header"
	"github.com/alnah/go-pep2html/internal/markup"
	"github.com/alnah/go-pep2html/internal/refs"
)

// Sentinel errors for pipeline execution.
var (
	// ErrStateOrder indicates a pass ran against a document in the wrong
	// state. This is a programming error, not a document problem.
	ErrStateOrder = errors.New("pipeline state order violation")

	// ErrDuplicateTitle indicates the body already carries a top-level
	// heading, so promoting the metadata title would produce two.
	ErrDuplicateTitle = errors.New("document already has a top-level heading")

	// ErrUnknownDirective indicates a directive name with no handler.
	// Silent loss of a status banner would mislead readers, so this is
	// fatal for the document.
	ErrUnknownDirective = errors.New("unknown directive")

	// ErrMalformedDirective indicates a directive argument a handler could
	// not use.
	ErrMalformedDirective = errors.New("malformed directive")
)

// State tracks a document's progress through the pipeline. Transitions are
// strictly ordered; skipping a state is disallowed.
type State int

const (
	StateRaw State = iota
	StateMetadataExtracted
	StateReferencesResolved
	StateNormalized
	StateTitlePromoted
	StateTocSynthesized
	StateFooterSynthesized
	StateDirectivesExpanded
	StateRenderable
)

var stateNames = map[State]string{
	StateRaw:                "Raw",
	StateMetadataExtracted:  "MetadataExtracted",
	StateReferencesResolved: "ReferencesResolved",
	StateNormalized:         "Normalized",
	StateTitlePromoted:      "TitlePromoted",
	StateTocSynthesized:     "TocSynthesized",
	StateFooterSynthesized:  "FooterSynthesized",
	StateDirectivesExpanded: "DirectivesExpanded",
	StateRenderable:         "Renderable",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Info is the identity a document enters the pipeline with: its parsed
// header plus the provenance the footer shows.
type Info struct {
	Header      header.Header
	SourceName  string
	Fingerprint string
}

// Doc is one document moving through the pipeline. The tree is owned by a
// single run; passes mutate it in place. Diags accumulates broken-reference
// diagnostics from resolution and from synthesized relationship links.
type Doc struct {
	Info   Info
	Source []byte
	Tree   *gast.Document
	State  State
	Diags  []refs.Diagnostic
	TOC    []markup.TOCEntry
}

// Pipeline executes the transform passes. The directive-handler table is
// fixed at construction and the resolver is shared read-only, so one
// pipeline may serve concurrent document runs.
type Pipeline struct {
	resolver   *refs.Resolver
	directives map[string]Handler
}

// New builds a pipeline over resolver. A nil handler table means
// DefaultDirectives.
func New(resolver *refs.Resolver, directives map[string]Handler) *Pipeline {
	if directives == nil {
		directives = DefaultDirectives()
	}
	return &Pipeline{resolver: resolver, directives: directives}
}

// pass binds one pipeline step to the states it moves between.
type pass struct {
	name string
	from State
	to   State
	run  func(*Pipeline, *Doc) error
}

var passes = []pass{
	{"resolve-references", StateMetadataExtracted, StateReferencesResolved, (*Pipeline).resolveReferences},
	{"normalize-header", StateReferencesResolved, StateNormalized, (*Pipeline).normalizeHeader},
	{"promote-title", StateNormalized, StateTitlePromoted, (*Pipeline).promoteTitle},
	{"synthesize-toc", StateTitlePromoted, StateTocSynthesized, (*Pipeline).synthesizeTOC},
	{"synthesize-footer", StateTocSynthesized, StateFooterSynthesized, (*Pipeline).synthesizeFooter},
	{"expand-directives", StateFooterSynthesized, StateDirectivesExpanded, (*Pipeline).expandDirectives},
}

// Run advances doc from MetadataExtracted to Renderable. On failure the
// document keeps the state of its last completed pass and the returned
// error names the failing pass.
func (p *Pipeline) Run(doc *Doc) error {
	if doc.State != StateMetadataExtracted {
		return fmt.Errorf("%w: run starts at %s, document is at %s",
			ErrStateOrder, StateMetadataExtracted, doc.State)
	}
	for _, ps := range passes {
		if doc.State != ps.from {
			return fmt.Errorf("%w: pass %s expects %s, document is at %s",
				ErrStateOrder, ps.name, ps.from, doc.State)
		}
		if err := ps.run(p, doc); err != nil {
			return fmt.Errorf("pass %s: %w", ps.name, err)
		}
		doc.State = ps.to
	}
	doc.State = StateRenderable
	return nil
}

// resolveReferences rewrites inline reference tokens through the corpus
// table. Diagnostics for broken references accumulate on the document.
func (p *Pipeline) resolveReferences(d *Doc) error {
	d.Diags = append(d.Diags, p.resolver.Resolve(d.Info.Header.Number, d.Tree)...)
	return nil
}

// findChildKind returns the first direct child of parent with the given
// kind, or nil.
func findChildKind(parent gast.Node, kind gast.NodeKind) gast.Node {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// str wraps a literal string as an inline node.
func str(s string) gast.Node {
	return gast.NewString([]byte(s))
}

// linkNode builds a plain hyperlink with a literal label.
func linkNode(destination, label string) gast.Node {
	link := gast.NewLink()
	link.Destination = []byte(destination)
	link.AppendChild(link, str(label))
	return link
}
