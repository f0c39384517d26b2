package pep2html

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-pep2html/internal/fingerprint"
	"github.com/alnah/go-pep2html/internal/header"
	"github.com/alnah/go-pep2html/internal/markup"
	"github.com/alnah/go-pep2html/internal/refs"
	"github.com/alnah/go-pep2html/internal/sanitize"
	"github.com/alnah/go-pep2html/internal/transform"
)

// buildEngine is the seam between corpus orchestration and the per-document
// pipeline. The production implementation runs the full pipeline over pooled
// engines; tests substitute it to count invocations or inject failures.
type buildEngine interface {
	BuildDocument(ctx context.Context, job *documentJob) (*RenderedDocument, error)
}

// documentJob carries one parseable document into the engine. The header is
// already parsed; the body is everything after the header block.
type documentJob struct {
	number int
	name   string
	fp     fingerprint.Fingerprint
	header *header.Header
	body   []byte
	pipe   *transform.Pipeline
}

// stageError tags a document failure with the pipeline stage it came from.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return e.stage + ": " + e.err.Error()
}

func (e *stageError) Unwrap() error {
	return e.err
}

// failureStage extracts the stage tag from a document failure.
func failureStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return StageInternal
}

// Compile-time interface check.
var _ buildEngine = (*pipelineEngine)(nil)

// pipelineEngine is the production buildEngine. Each call borrows an engine
// from the pool and runs parse, transform, render, sanitize, verify for one
// document. Failures and panics stay contained to that document.
type pipelineEngine struct {
	pool *enginePool
}

// BuildDocument runs the body pipeline for one document.
func (p *pipelineEngine) BuildDocument(ctx context.Context, job *documentJob) (rendered *RenderedDocument, err error) {
	// Recover from pipeline panics and report them as document failures
	defer func() {
		if r := recover(); r != nil {
			rendered = nil
			err = &stageError{stage: StageInternal, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	eng := p.pool.acquire()
	defer p.pool.release(eng)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &transform.Doc{
		Info: transform.Info{
			Header:      *job.header,
			SourceName:  job.name,
			Fingerprint: string(job.fp),
		},
		Source: job.body,
		Tree:   eng.markup.Parse(job.body),
		State:  transform.StateMetadataExtracted,
	}
	if err := job.pipe.Run(doc); err != nil {
		return nil, &stageError{stage: StageTransform, err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fragment, err := eng.renderer.Render(job.body, doc.Tree)
	if err != nil {
		return nil, &stageError{stage: StageRender, err: err}
	}

	clean, err := sanitize.Sanitize(fragment)
	if err != nil {
		return nil, &stageError{stage: StageSanitize, err: err}
	}
	if err := sanitize.Verify(clean); err != nil {
		return nil, &stageError{stage: StageSanitize, err: err}
	}

	return &RenderedDocument{
		Number:      job.number,
		Fingerprint: string(job.fp),
		Title:       job.header.Title,
		HTML:        clean,
		TOC:         tocEntries(doc.TOC),
		Diagnostics: diagnostics(doc.Diags),
	}, nil
}

// tocEntries converts the outline collected during transformation.
func tocEntries(entries []markup.TOCEntry) []TOCEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]TOCEntry, len(entries))
	for i, e := range entries {
		out[i] = TOCEntry{Text: e.Text, Anchor: e.Anchor, Depth: e.Depth}
	}
	return out
}

// diagnostics converts broken-reference diagnostics.
func diagnostics(diags []refs.Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic{
			Source:  d.Source,
			Target:  d.Target,
			Label:   d.Label,
			Message: d.Message,
		}
	}
	return out
}
