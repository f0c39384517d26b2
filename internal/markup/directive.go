package markup

import (
	"regexp"

	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// directiveIndent is the column width continuation lines must be indented
// by to belong to a directive, matching the width of the ".. " marker.
const directiveIndent = 3

// directivePattern matches the opener line after right-trimming:
// two dots, whitespace, a lowercase name, "::", and an optional argument.
var directivePattern = regexp.MustCompile(`^\.\.[ \t]+([a-z][a-z0-9-]*)::(?:[ \t]+(.*))?$`)

type directiveParser struct{}

var defaultDirectiveParser = &directiveParser{}

// NewDirectiveParser returns the block parser for `.. name:: argument`
// directives. Indented lines under the marker are parsed as the directive's
// child blocks, so directives may nest.
func NewDirectiveParser() parser.BlockParser {
	return defaultDirectiveParser
}

var _ parser.BlockParser = (*directiveParser)(nil)

// Trigger implements parser.BlockParser.
func (p *directiveParser) Trigger() []byte {
	return []byte{'.'}
}

// Open implements parser.BlockParser.
func (p *directiveParser) Open(parent gast.Node, reader text.Reader, pc parser.Context) (gast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	match := directivePattern.FindSubmatch(util.TrimRightSpace(line[pos:]))
	if match == nil {
		return nil, parser.NoChildren
	}
	node := NewDirective(string(match[1]), string(match[2]))
	reader.Advance(segment.Stop - segment.Start - 1 - segment.Padding)
	return node, parser.HasChildren
}

// Continue implements parser.BlockParser.
func (p *directiveParser) Continue(node gast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	if util.IsBlank(line) {
		return parser.Continue | parser.HasChildren
	}
	childPos, padding := util.IndentPosition(line, reader.LineOffset(), directiveIndent)
	if childPos < 0 {
		return parser.Close
	}
	reader.AdvanceAndSetPadding(childPos, padding)
	return parser.Continue | parser.HasChildren
}

// Close implements parser.BlockParser.
func (p *directiveParser) Close(node gast.Node, reader text.Reader, pc parser.Context) {}

// CanInterruptParagraph implements parser.BlockParser.
func (p *directiveParser) CanInterruptParagraph() bool {
	return false
}

// CanAcceptIndentedLine implements parser.BlockParser.
func (p *directiveParser) CanAcceptIndentedLine() bool {
	return false
}
