// Package pep2html builds a corpus of PEP-style proposal documents into
// sanitized, cross-linked HTML.
//
// # Quick Start
//
// Create a builder, feed it the corpus, and write what rendered:
//
//	b := pep2html.New()
//
//	result, err := b.Build(ctx, pep2html.Corpus{
//	    Sources: []pep2html.Source{
//	        {Number: 1, Text: pep1},
//	        {Number: 8, Text: pep8},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for n, doc := range result.Documents {
//	    os.WriteFile(fmt.Sprintf("pep-%04d.html", n), doc.HTML, 0644)
//	}
//
// The result also carries the synthesized corpus index (result.Index), the
// fingerprint table to persist for the next run (result.Fingerprints), and
// a per-document report (result.Report). Fragments contain no page chrome;
// callers wrap them in their own template.
//
// # Build Pipeline
//
// Each document moves through these stages:
//
//  1. Metadata parsing (RFC-822-style header block)
//  2. Body parsing via goldmark (tables, footnotes, directives, PEP and RFC
//     reference tokens)
//  3. Transformation (reference resolution, normalization, title promotion,
//     front matter and footer synthesis, directive expansion)
//  4. HTML rendering with chroma syntax highlighting
//  5. Sanitization (allow-list based, stripping rather than escaping)
//
// Builds run in two phases: all metadata first, then all bodies in parallel.
// Every document can therefore link to every other regardless of corpus
// order, and the index always reflects the complete metadata table.
//
// # Incremental Rebuilds
//
// Persist result.Fingerprints between runs and pass it back as Corpus.Prior:
//
//	prior, _ := os.ReadFile("fingerprints.json")
//	result, err := b.Build(ctx, pep2html.Corpus{Sources: sources, Prior: prior})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("fingerprints.json", result.Fingerprints, 0644)
//
// Documents whose fingerprint is unchanged skip the body pipeline entirely
// and report the "skipped" outcome. The index rebuilds only when the corpus
// fingerprint changes. A failed document keeps its prior fingerprint entry,
// so the next run retries it.
//
// # Configuration
//
// Use functional options to customize the builder:
//
//	b := pep2html.New(
//	    pep2html.WithLogger(slog.Default()),
//	    pep2html.WithWorkers(4),
//	    pep2html.WithDocumentURL("/proposals/%d/"),
//	    pep2html.WithIndexTitle("Proposal Index"),
//	)
//
// # Failure Handling
//
// Per-document failures never abort a run. A document that fails any stage
// is dropped from the output and reported with its stage and error. Build
// returns a non-nil error only when the run as a whole cannot proceed: an
// empty corpus, a duplicate or reserved document number, an undecodable
// prior fingerprint table, or a canceled context.
//
// If any document fails metadata parsing, the index is withheld for the run
// rather than listing an incomplete corpus; its report entry carries
// ErrIndexWithheld.
package pep2html
