package markup

import (
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Parser priorities relative to goldmark's built-ins. The directive opener
// must run before the paragraph parser (1000) and after fenced code blocks
// (700) so directive-looking lines inside code fences stay literal.
const (
	directiveParserPriority = 790
	refScannerPriority      = 500
)

// Engine wraps the configured goldmark instance. Engines are handed out by
// the worker pool; each serves one pipeline run at a time.
type Engine struct {
	md goldmark.Markdown
}

// New assembles the proposal-body engine: tables, strikethrough, bare-URL
// autolinks, footnotes, automatic heading ids, the directive block parser,
// and the reference tokenizer. Task-list syntax is deliberately absent; its
// checkbox inputs would not survive sanitization.
func New() *Engine {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
			extension.Footnote,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithBlockParsers(
				util.Prioritized(NewDirectiveParser(), directiveParserPriority),
			),
			parser.WithASTTransformers(
				util.Prioritized(NewRefScanner(), refScannerPriority),
			),
		),
	)
	return &Engine{md: md}
}

// Parse builds the document tree for body. Reference tokenization runs as
// part of parsing. The tree shares text segments with body, so body must
// stay alive as long as the tree is in use.
func (e *Engine) Parse(body []byte) *gast.Document {
	return e.md.Parser().Parse(text.NewReader(body)).(*gast.Document)
}
