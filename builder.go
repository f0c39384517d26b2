package pep2html

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-pep2html/internal/fingerprint"
	"github.com/alnah/go-pep2html/internal/header"
	"github.com/alnah/go-pep2html/internal/index"
	"github.com/alnah/go-pep2html/internal/refs"
	"github.com/alnah/go-pep2html/internal/transform"
)

// Builder turns a corpus of raw proposal sources into sanitized HTML
// fragments, a synthesized index, and a fingerprint table for incremental
// rebuilds. A Builder is safe for concurrent use; runs share the engine pool.
type Builder struct {
	cfg        builderConfig
	logger     *slog.Logger
	directives map[string]transform.Handler
	engine     buildEngine
	pool       *enginePool
}

// New creates a Builder. Defaults: discard logging, worker count from
// ResolvePoolSize, package URL templates, package index title and author.
func New(opts ...Option) *Builder {
	b := &Builder{
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.pool = newEnginePool(ResolvePoolSize(b.cfg.workers))
	b.engine = &pipelineEngine{pool: b.pool}

	return b
}

// corpusDoc is one source moving through a build run.
type corpusDoc struct {
	source   Source
	name     string
	fp       fingerprint.Fingerprint
	status   fingerprint.Status
	header   *header.Header
	body     []byte
	parseErr error
}

// Build runs the corpus through the pipeline and returns everything that
// rendered this run. Per-document failures land in the report; the returned
// error is non-nil only when the run as a whole could not proceed.
func (b *Builder) Build(ctx context.Context, corpus Corpus) (*BuildResult, error) {
	if len(corpus.Sources) == 0 {
		return nil, ErrNoSources
	}
	if err := checkSources(corpus.Sources); err != nil {
		return nil, err
	}

	prior := fingerprint.Table{}
	if len(corpus.Prior) > 0 {
		t, err := fingerprint.Decode(corpus.Prior)
		if err != nil {
			return nil, fmt.Errorf("decoding prior fingerprints: %w", err)
		}
		prior = t
	}

	runID := uuid.NewString()
	log := b.logger.With("run", runID)
	log.Info("build starting",
		"documents", len(corpus.Sources),
		"workers", b.pool.Size())

	// Phase A: fingerprint and parse metadata for every source. The corpus
	// metadata table must be complete before any body resolves references.
	docs, err := b.parseMetadata(ctx, corpus.Sources, prior)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pipe := b.newPipeline(docs)

	// Phase B: body pipeline for new and changed parseable documents.
	results, failures, err := b.buildDocuments(ctx, docs, pipe)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := make(Report, 0, len(docs)+1)
	documents := make(map[int]*RenderedDocument, len(docs))
	next := fingerprint.Table{}    // persisted for the next run
	current := fingerprint.Table{} // every source fingerprint, keys the index
	omitted := make(map[int]bool)  // index rows for documents without a page
	parseFailed := 0

	for i, d := range docs {
		n := d.source.Number
		current[n] = d.fp

		switch {
		case d.parseErr != nil:
			parseFailed++
			carryPrior(next, prior, n)
			report = append(report, ReportEntry{
				Number: n, Outcome: OutcomeFailed, Stage: StageMetadata, Err: d.parseErr,
			})
			log.Warn("metadata parse failed", "document", d.name, "error", d.parseErr)
		case d.status == fingerprint.StatusUnchanged:
			next[n] = d.fp
			report = append(report, ReportEntry{Number: n, Outcome: OutcomeSkipped})
			log.Debug("document unchanged", "document", d.name)
		case failures[i] != nil:
			omitted[n] = true
			carryPrior(next, prior, n)
			report = append(report, ReportEntry{
				Number: n, Outcome: OutcomeFailed, Stage: failureStage(failures[i]), Err: failures[i],
			})
			log.Warn("document build failed",
				"document", d.name,
				"stage", failureStage(failures[i]),
				"error", failures[i])
		default:
			next[n] = d.fp
			documents[n] = results[i]
			report = append(report, ReportEntry{Number: n, Outcome: OutcomeRendered})
			log.Debug("document rendered", "document", d.name)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase C: the index, after every per-document outcome is known.
	corpusFP := current.Corpus()
	var indexDoc *RenderedDocument

	switch {
	case parseFailed > 0:
		// The index requires a complete metadata table; withhold it this run
		carryPrior(next, prior, index.Number)
		withheld := fmt.Errorf("%w: %d documents failed metadata parsing", ErrIndexWithheld, parseFailed)
		report = append(report, ReportEntry{
			Number: index.Number, Outcome: OutcomeFailed, Stage: StageIndex, Err: withheld,
		})
		log.Warn("index withheld", "unparsed", parseFailed)
	case prior.Classify(index.Number, corpusFP) == fingerprint.StatusUnchanged:
		next[index.Number] = corpusFP
		report = append(report, ReportEntry{Number: index.Number, Outcome: OutcomeSkipped})
		log.Debug("index unchanged")
	default:
		rendered, err := b.buildIndex(ctx, docs, omitted, pipe, corpusFP)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			carryPrior(next, prior, index.Number)
			report = append(report, ReportEntry{
				Number: index.Number, Outcome: OutcomeFailed, Stage: failureStage(err), Err: err,
			})
			log.Warn("index build failed", "error", err)
		} else {
			next[index.Number] = corpusFP
			indexDoc = rendered
			report = append(report, ReportEntry{Number: index.Number, Outcome: OutcomeRendered})
			log.Debug("index rendered")
		}
	}

	sort.Slice(report, func(i, j int) bool { return report[i].Number < report[j].Number })

	encoded, err := next.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding fingerprints: %w", err)
	}

	renderedCount, skippedCount, failedCount := report.Counts()
	log.Info("build finished",
		"rendered", renderedCount,
		"skipped", skippedCount,
		"failed", failedCount)

	return &BuildResult{
		RunID:        runID,
		Documents:    documents,
		Index:        indexDoc,
		Fingerprints: encoded,
		Report:       report,
	}, nil
}

// parseMetadata fingerprints and header-parses every source in parallel.
// Parse failures are recorded per document; the only error returned is
// context cancellation.
func (b *Builder) parseMetadata(ctx context.Context, sources []Source, prior fingerprint.Table) ([]*corpusDoc, error) {
	docs := make([]*corpusDoc, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.pool.Size())
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			d := &corpusDoc{
				source: src,
				name:   sourceName(src.Number),
				fp:     fingerprint.Compute(src.Text),
			}
			d.status = prior.Classify(src.Number, d.fp)

			h, body, err := header.Parse(src.Number, src.Text)
			if err != nil {
				d.parseErr = err
			} else {
				d.header = h
				d.body = body
			}

			// Each goroutine owns exactly one slot
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return docs, nil
}

// newPipeline builds the run's shared transform pipeline over a resolver
// seeded with every parseable document plus the index itself.
func (b *Builder) newPipeline(docs []*corpusDoc) *transform.Pipeline {
	targets := make(map[int]refs.Target, len(docs)+1)
	for _, d := range docs {
		if d.parseErr != nil {
			continue
		}
		targets[d.source.Number] = refs.Target{
			Number: d.source.Number,
			Title:  d.header.Title,
			URL:    d.source.URL,
		}
	}
	targets[index.Number] = refs.Target{Number: index.Number, Title: b.indexTitle()}

	resolver := refs.New(targets, b.cfg.documentURL, b.cfg.rfcURL)
	return transform.New(resolver, b.directives)
}

// buildDocuments runs the body pipeline for every new or changed parseable
// document. Results and failures land in slots parallel to docs; the only
// error returned is context cancellation.
func (b *Builder) buildDocuments(ctx context.Context, docs []*corpusDoc, pipe *transform.Pipeline) ([]*RenderedDocument, []error, error) {
	results := make([]*RenderedDocument, len(docs))
	failures := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.pool.Size())
	for i, d := range docs {
		if d.parseErr != nil || d.status == fingerprint.StatusUnchanged {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rendered, err := b.engine.BuildDocument(gctx, &documentJob{
				number: d.source.Number,
				name:   d.name,
				fp:     d.fp,
				header: d.header,
				body:   d.body,
				pipe:   pipe,
			})
			results[i], failures[i] = rendered, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return results, failures, nil
}

// buildIndex synthesizes the index source from the complete metadata table
// and runs it through the same pipeline as any document.
func (b *Builder) buildIndex(ctx context.Context, docs []*corpusDoc, omitted map[int]bool, pipe *transform.Pipeline, corpusFP fingerprint.Fingerprint) (*RenderedDocument, error) {
	entries := make([]index.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, index.FromHeader(d.header, omitted[d.source.Number]))
	}

	source := index.Synthesize(entries, index.Meta{
		Title:  b.indexTitle(),
		Author: b.cfg.indexAuthor,
	})

	h, body, err := header.Parse(index.Number, source)
	if err != nil {
		return nil, &stageError{stage: StageIndex, err: err}
	}

	return b.engine.BuildDocument(ctx, &documentJob{
		number: index.Number,
		name:   index.SourceName,
		fp:     corpusFP,
		header: h,
		body:   body,
		pipe:   pipe,
	})
}

// indexTitle resolves the configured index title.
func (b *Builder) indexTitle() string {
	if b.cfg.indexTitle != "" {
		return b.cfg.indexTitle
	}
	return index.DefaultTitle
}

// ParseMetadata parses and validates the header block of a single document
// without running the body pipeline. Number must match the header's own
// PEP field.
func ParseMetadata(number int, source []byte) (*Metadata, error) {
	h, _, err := header.Parse(number, source)
	if err != nil {
		return nil, err
	}
	m := metadataFromHeader(h)
	return &m, nil
}

// metadataFromHeader converts a parsed header to the boundary type.
func metadataFromHeader(h *header.Header) Metadata {
	authors := make([]Author, len(h.Authors))
	for i, a := range h.Authors {
		authors[i] = Author{Name: a.Name, Email: a.Email}
	}

	return Metadata{
		Number:        h.Number,
		Title:         h.Title,
		Authors:       authors,
		Status:        Status(h.Status),
		Kind:          Kind(h.Kind),
		Created:       h.Created,
		Requires:      h.Requires,
		Replaces:      h.Replaces,
		SupersededBy:  h.SupersededBy,
		PythonVersion: h.PythonVersion,
		DiscussionsTo: h.DiscussionsTo,
		PostHistory:   h.PostHistory,
		Resolution:    h.Resolution,
		Topic:         h.Topic,
	}
}

// checkSources rejects corpora the build cannot meaningfully run over.
func checkSources(sources []Source) error {
	seen := make(map[int]bool, len(sources))
	for _, src := range sources {
		if src.Number == index.Number {
			return ErrReservedNumber
		}
		if src.Number < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidNumber, src.Number)
		}
		if seen[src.Number] {
			return fmt.Errorf("%w: %d", ErrDuplicateSource, src.Number)
		}
		seen[src.Number] = true
	}
	return nil
}

// carryPrior keeps a document's previous fingerprint entry so the next run
// retries it against the fingerprint its last written output was built from.
func carryPrior(next, prior fingerprint.Table, number int) {
	if fp, ok := prior[number]; ok {
		next[number] = fp
	}
}

// sourceName formats the canonical source name for a document number.
func sourceName(number int) string {
	return fmt.Sprintf("pep-%04d", number)
}
