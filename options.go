package pep2html

import (
	"log/slog"

	"github.com/alnah/go-pep2html/internal/transform"
)

// WithLogger sets the logger for build progress and per-document outcomes.
// The default discards everything.
// Panics if l is nil (programmer error, similar to time.NewTicker).
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("pep2html: WithLogger requires a non-nil logger")
	}
	return func(b *Builder) {
		b.logger = l
	}
}

// WithWorkers sets the number of documents processed in parallel.
// Zero selects an automatic size from GOMAXPROCS; see ResolvePoolSize.
// Panics if n is negative.
func WithWorkers(n int) Option {
	if n < 0 {
		panic("pep2html: WithWorkers count must not be negative")
	}
	return func(b *Builder) {
		b.cfg.workers = n
	}
}

// WithDocumentURL sets the link template for document cross-references.
// The template must contain exactly one %d verb; an empty template keeps
// the package default.
func WithDocumentURL(template string) Option {
	return func(b *Builder) {
		b.cfg.documentURL = template
	}
}

// WithRFCURL sets the link template for RFC cross-references.
// The template must contain exactly one %d verb; an empty template keeps
// the package default.
func WithRFCURL(template string) Option {
	return func(b *Builder) {
		b.cfg.rfcURL = template
	}
}

// WithIndexTitle sets the title of the synthesized index document.
func WithIndexTitle(title string) Option {
	return func(b *Builder) {
		b.cfg.indexTitle = title
	}
}

// WithIndexAuthor sets the author line of the synthesized index document.
func WithIndexAuthor(author string) Option {
	return func(b *Builder) {
		b.cfg.indexAuthor = author
	}
}

// withDirectives overrides the default directive handler table.
// The handler type lives in an internal package, which keeps this option
// unexported.
func withDirectives(table map[string]transform.Handler) Option {
	return func(b *Builder) {
		b.directives = table
	}
}
