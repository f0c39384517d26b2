package markup

import (
	"regexp"
	"strconv"

	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// refPattern matches inline proposal and RFC mentions. Both the spaced and
// hyphenated corpus spellings are recognized.
var refPattern = regexp.MustCompile(`\b(PEP|RFC)[ -](\d{1,5})\b`)

type refScanner struct{}

var defaultRefScanner = &refScanner{}

// NewRefScanner returns the transformer that lifts `PEP N` / `RFC N` text
// spans into ProposalRef and RFCRef nodes. Spans inside code, links, and
// images are left alone, so generated links are never re-scanned.
func NewRefScanner() parser.ASTTransformer {
	return defaultRefScanner
}

var _ parser.ASTTransformer = (*refScanner)(nil)

// Transform implements parser.ASTTransformer.
func (s *refScanner) Transform(doc *gast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()

	// Collect first, mutate after: splitting while walking would invalidate
	// the walker's position.
	var hits []*gast.Text
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch n.Kind() {
		case gast.KindCodeSpan, gast.KindLink, gast.KindAutoLink, gast.KindImage:
			return gast.WalkSkipChildren, nil
		}
		if t, ok := n.(*gast.Text); ok && refPattern.Match(t.Segment.Value(source)) {
			hits = append(hits, t)
		}
		return gast.WalkContinue, nil
	})

	for _, t := range hits {
		splitTextNode(t, source)
	}
}

// splitTextNode replaces one text node with the interleaving of literal
// spans and reference nodes. Line-break flags carried by the original node
// transfer to the final replacement so paragraph breaks survive.
func splitTextNode(t *gast.Text, source []byte) {
	parent := t.Parent()
	if parent == nil {
		return
	}
	seg := t.Segment
	value := seg.Value(source)
	matches := refPattern.FindAllSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return
	}

	var nodes []gast.Node
	prev := 0
	for _, m := range matches {
		if m[0] > prev {
			nodes = append(nodes, literalNode(seg.Start+prev, seg.Start+m[0]))
		}
		number, _ := strconv.Atoi(string(value[m[4]:m[5]]))
		label := string(value[m[0]:m[1]])
		if value[m[2]] == 'P' {
			nodes = append(nodes, NewProposalRef(number, label))
		} else {
			nodes = append(nodes, NewRFCRef(number, label))
		}
		prev = m[1]
	}

	switch {
	case prev < len(value):
		tail := literalNode(seg.Start+prev, seg.Start+len(value))
		tail.SetSoftLineBreak(t.SoftLineBreak())
		tail.SetHardLineBreak(t.HardLineBreak())
		nodes = append(nodes, tail)
	case t.SoftLineBreak() || t.HardLineBreak():
		// Reference at end of line: keep the break on an empty text node.
		tail := literalNode(seg.Stop, seg.Stop)
		tail.SetSoftLineBreak(t.SoftLineBreak())
		tail.SetHardLineBreak(t.HardLineBreak())
		nodes = append(nodes, tail)
	}

	for _, n := range nodes {
		parent.InsertBefore(parent, t, n)
	}
	parent.RemoveChild(parent, t)
}

func literalNode(start, stop int) *gast.Text {
	t := gast.NewText()
	t.Segment = text.NewSegment(start, stop)
	return t
}
