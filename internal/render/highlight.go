package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlighter tokenizes fenced code through chroma. Class-based output
// keeps color out of inline styles so the embedded stylesheet owns the
// palette and sanitization has nothing to strip.
type highlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newHighlighter() *highlighter {
	return &highlighter{
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.WithLineNumbers(false),
		),
		style: styles.Get("github"),
	}
}

// render writes highlighted markup for code, or reports an error so the
// caller can fall back to a plain block. An unknown language is an error
// here rather than a silent guess.
func (h *highlighter) render(sb *strings.Builder, language, code string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		return fmt.Errorf("no lexer for language %q", language)
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", language, err)
	}
	return h.formatter.Format(sb, h.style, iterator)
}
