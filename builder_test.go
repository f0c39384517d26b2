package pep2html

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-pep2html/internal/fingerprint"
	"github.com/alnah/go-pep2html/internal/index"
	"github.com/alnah/go-pep2html/internal/refs"
	"github.com/alnah/go-pep2html/internal/transform"
)

// sourceText assembles a minimal valid document around body.
func sourceText(number int, title, status, kind, created, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PEP: %d\n", number)
	fmt.Fprintf(&sb, "Title: %s\n", title)
	sb.WriteString("Author: Barry Warsaw <barry@python.org>\n")
	fmt.Fprintf(&sb, "Status: %s\n", status)
	fmt.Fprintf(&sb, "Type: %s\n", kind)
	fmt.Fprintf(&sb, "Created: %s\n", created)
	sb.WriteString("\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// testCorpus builds a two-document corpus with a cross-reference.
func testCorpus() Corpus {
	return Corpus{Sources: []Source{
		{Number: 1, Text: sourceText(1, "PEP Purpose and Guidelines", "Active", "Process", "13-Jun-2000",
			"This document explains the proposal process.\n")},
		{Number: 8, Text: sourceText(8, "Style Guide for Python Code", "Active", "Process", "05-Jul-2001",
			"See PEP 1 for the process.\n\n## Code Layout\n\nUse four spaces per indentation level.\n")},
	}}
}

func mustBuild(t *testing.T, b *Builder, corpus Corpus) *BuildResult {
	t.Helper()
	result, err := b.Build(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return result
}

func mustDecode(t *testing.T, data []byte) fingerprint.Table {
	t.Helper()
	table, err := fingerprint.Decode(data)
	if err != nil {
		t.Fatalf("Decode(result.Fingerprints) error = %v", err)
	}
	return table
}

// countingEngine counts BuildDocument calls per document number and
// delegates to the engine it wraps.
type countingEngine struct {
	inner buildEngine
	mu    sync.Mutex
	calls map[int]int
}

func wrapCounting(b *Builder) *countingEngine {
	c := &countingEngine{inner: b.engine, calls: make(map[int]int)}
	b.engine = c
	return c
}

func (c *countingEngine) BuildDocument(ctx context.Context, job *documentJob) (*RenderedDocument, error) {
	c.mu.Lock()
	c.calls[job.number]++
	c.mu.Unlock()
	return c.inner.BuildDocument(ctx, job)
}

func (c *countingEngine) count(number int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[number]
}

// failingEngine fails selected documents and delegates the rest.
type failingEngine struct {
	inner buildEngine
	fail  map[int]error
}

func (f *failingEngine) BuildDocument(ctx context.Context, job *documentJob) (*RenderedDocument, error) {
	if err, ok := f.fail[job.number]; ok {
		return nil, err
	}
	return f.inner.BuildDocument(ctx, job)
}

func TestBuild_CorpusValidation(t *testing.T) {
	t.Parallel()

	valid := testCorpus().Sources[0]

	tests := []struct {
		name    string
		sources []Source
		wantErr error
	}{
		{
			name:    "empty corpus",
			sources: nil,
			wantErr: ErrNoSources,
		},
		{
			name:    "reserved number",
			sources: []Source{valid, {Number: 0, Text: []byte("PEP: 0\n")}},
			wantErr: ErrReservedNumber,
		},
		{
			name:    "negative number",
			sources: []Source{valid, {Number: -3, Text: []byte("x")}},
			wantErr: ErrInvalidNumber,
		},
		{
			name:    "duplicate number",
			sources: []Source{valid, valid},
			wantErr: ErrDuplicateSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New().Build(context.Background(), Corpus{Sources: tt.sources})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_BadPriorFingerprints(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	corpus.Prior = []byte("{not json")

	_, err := New().Build(context.Background(), corpus)
	if !errors.Is(err, ErrBadFingerprints) {
		t.Errorf("Build() error = %v, want ErrBadFingerprints", err)
	}
}

func TestBuild_SingleDocument(t *testing.T) {
	t.Parallel()

	text := sourceText(7, "Release Schedule", "Final", "Informational", "14-Aug-2001",
		"The release happens when it is ready.\n")
	result := mustBuild(t, New(), Corpus{Sources: []Source{{Number: 7, Text: text}}})

	if result.RunID == "" {
		t.Error("RunID is empty")
	}

	doc := result.Documents[7]
	if doc == nil {
		t.Fatal("Documents[7] is nil")
	}
	if doc.Title != "Release Schedule" {
		t.Errorf("Title = %q", doc.Title)
	}
	if want := string(fingerprint.Compute(text)); doc.Fingerprint != want {
		t.Errorf("Fingerprint = %q, want %q", doc.Fingerprint, want)
	}

	html := string(doc.HTML)
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Release Schedule") {
		t.Errorf("HTML missing promoted title:\n%s", html)
	}
	if !strings.Contains(html, `class="front-matter"`) {
		t.Error("HTML missing front matter block")
	}

	if result.Index == nil {
		t.Fatal("Index is nil")
	}
	if result.Index.Number != index.Number {
		t.Errorf("Index.Number = %d", result.Index.Number)
	}
	if result.Index.Title != index.DefaultTitle {
		t.Errorf("Index.Title = %q", result.Index.Title)
	}

	if len(result.Report) != 2 {
		t.Fatalf("Report has %d entries, want 2", len(result.Report))
	}
	rendered, skipped, failed := result.Report.Counts()
	if rendered != 2 || skipped != 0 || failed != 0 {
		t.Errorf("Counts() = %d/%d/%d, want 2/0/0", rendered, skipped, failed)
	}

	table := mustDecode(t, result.Fingerprints)
	if got := table[7]; got != fingerprint.Compute(text) {
		t.Errorf("table[7] = %q", got)
	}
	if _, ok := table[index.Number]; !ok {
		t.Error("table missing index entry")
	}
}

func TestBuild_CrossReferencesAndIndex(t *testing.T) {
	t.Parallel()

	pep2 := []byte(`PEP: 2
Title: Procedure for Adding New Modules
Author: Brett Cannon <brett@python.org>
Status: Final
Type: Standards Track
Created: 07-Jul-2001
Requires: 1

See PEP 1 for the general process.
`)
	corpus := Corpus{Sources: []Source{
		{Number: 1, Text: sourceText(1, "PEP Purpose and Guidelines", "Active", "Process", "13-Jun-2000",
			"This document explains the proposal process.\n")},
		{Number: 2, Text: pep2},
	}}

	result := mustBuild(t, New(), corpus)

	doc2 := result.Documents[2]
	if doc2 == nil {
		t.Fatal("Documents[2] is nil")
	}
	html2 := string(doc2.HTML)
	if !strings.Contains(html2, `href="/pep-0001/"`) {
		t.Errorf("document 2 does not link document 1:\n%s", html2)
	}
	if len(doc2.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %+v, want none", doc2.Diagnostics)
	}

	if result.Index == nil {
		t.Fatal("Index is nil")
	}
	idx := string(result.Index.HTML)
	for _, want := range []string{
		"Active Proposals", "Final Proposals",
		`href="/pep-0001/"`, `href="/pep-0002/"`,
		"PEP Purpose and Guidelines", "Procedure for Adding New Modules",
	} {
		if !strings.Contains(idx, want) {
			t.Errorf("index missing %q:\n%s", want, idx)
		}
	}

	// Status groups follow the canonical vocabulary order
	if strings.Index(idx, "Active Proposals") > strings.Index(idx, "Final Proposals") {
		t.Error("Active group should precede Final group")
	}
}

func TestBuild_SkipUnchanged(t *testing.T) {
	t.Parallel()

	b := New()
	counts := wrapCounting(b)
	corpus := testCorpus()

	first := mustBuild(t, b, corpus)
	for _, n := range []int{1, 8, index.Number} {
		if got := counts.count(n); got != 1 {
			t.Fatalf("first run: count(%d) = %d, want 1", n, got)
		}
	}

	corpus.Prior = first.Fingerprints
	second := mustBuild(t, b, corpus)

	// Unchanged documents never reach the engine
	for _, n := range []int{1, 8, index.Number} {
		if got := counts.count(n); got != 1 {
			t.Errorf("second run: count(%d) = %d, want 1", n, got)
		}
	}

	if len(second.Documents) != 0 {
		t.Errorf("Documents has %d entries, want 0", len(second.Documents))
	}
	if second.Index != nil {
		t.Error("Index should be nil on an all-skip run")
	}
	rendered, skipped, failed := second.Report.Counts()
	if rendered != 0 || skipped != 3 || failed != 0 {
		t.Errorf("Counts() = %d/%d/%d, want 0/3/0", rendered, skipped, failed)
	}
	if !bytes.Equal(second.Fingerprints, first.Fingerprints) {
		t.Error("fingerprints should be identical across all-skip runs")
	}
}

func TestBuild_ChangedDocumentRebuilds(t *testing.T) {
	t.Parallel()

	b := New()
	counts := wrapCounting(b)
	corpus := testCorpus()

	first := mustBuild(t, b, corpus)

	corpus.Sources[1].Text = sourceText(8, "Style Guide for Python Code", "Active", "Process", "05-Jul-2001",
		"See PEP 1 for the process.\n\n## Code Layout\n\nUse four spaces. Always.\n")
	corpus.Prior = first.Fingerprints
	second := mustBuild(t, b, corpus)

	if got := counts.count(1); got != 1 {
		t.Errorf("count(1) = %d, want 1 (unchanged)", got)
	}
	if got := counts.count(8); got != 2 {
		t.Errorf("count(8) = %d, want 2 (changed)", got)
	}
	if got := counts.count(index.Number); got != 2 {
		t.Errorf("count(index) = %d, want 2 (corpus fingerprint moved)", got)
	}

	if entry, _ := second.Report.ByNumber(1); entry.Outcome != OutcomeSkipped {
		t.Errorf("document 1 outcome = %q, want skipped", entry.Outcome)
	}
	if entry, _ := second.Report.ByNumber(8); entry.Outcome != OutcomeRendered {
		t.Errorf("document 8 outcome = %q, want rendered", entry.Outcome)
	}
}

func TestBuild_UnknownDirective(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	corpus.Sources = append(corpus.Sources, Source{
		Number: 9,
		Text: sourceText(9, "Experimental Ideas", "Draft", "Informational", "01-Mar-2002",
			".. mystery:: something\n"),
	})

	result := mustBuild(t, New(), corpus)

	entry, ok := result.Report.ByNumber(9)
	if !ok {
		t.Fatal("no report entry for document 9")
	}
	if entry.Outcome != OutcomeFailed || entry.Stage != StageTransform {
		t.Errorf("entry = %+v, want failed at transform", entry)
	}
	if !errors.Is(entry.Err, ErrUnknownDirective) {
		t.Errorf("entry.Err = %v, want ErrUnknownDirective", entry.Err)
	}
	if _, ok := result.Documents[9]; ok {
		t.Error("failed document should not appear in Documents")
	}

	// The index still lists the document, unlinked and marked
	if result.Index == nil {
		t.Fatal("Index is nil")
	}
	idx := string(result.Index.HTML)
	if !strings.Contains(idx, "Experimental Ideas") {
		t.Error("index missing failed document's title")
	}
	if !strings.Contains(idx, "9*") {
		t.Error("index missing omission marker for document 9")
	}
	if strings.Contains(idx, `href="/pep-0009/"`) {
		t.Error("index should not link a document without a page")
	}
	if !strings.Contains(idx, "produced no page in this run") {
		t.Error("index missing omission note")
	}
}

func TestBuild_BrokenReference(t *testing.T) {
	t.Parallel()

	pep100 := []byte(`PEP: 100
Title: Unicode Integration
Author: Marc-Andre Lemburg <mal@lemburg.com>
Status: Superseded
Type: Standards Track
Created: 10-Mar-2000
Superseded-By: 999

See PEP 999 for the replacement design.
`)
	corpus := testCorpus()
	corpus.Sources = append(corpus.Sources, Source{Number: 100, Text: pep100})

	result := mustBuild(t, New(), corpus)

	doc := result.Documents[100]
	if doc == nil {
		t.Fatal("Documents[100] is nil; broken references must not fail the document")
	}

	html := string(doc.HTML)
	if !strings.Contains(html, `class="broken-ref"`) {
		t.Errorf("HTML missing broken-ref marker:\n%s", html)
	}
	if !strings.Contains(html, "no document 999") {
		t.Error("broken-ref marker missing target number")
	}

	var found bool
	for _, d := range doc.Diagnostics {
		if d.Target == 999 && d.Source == 100 {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %+v, want an entry for target 999", doc.Diagnostics)
	}
}

func TestBuild_MetadataFailureWithholdsIndex(t *testing.T) {
	t.Parallel()

	// Status is missing
	broken := []byte(`PEP: 3
Title: Guidelines for Handling Bug Reports
Author: Jeremy Hylton <jeremy@alum.mit.edu>
Type: Process
Created: 25-Sep-2000

Handling bug reports.
`)
	corpus := testCorpus()
	corpus.Sources = append(corpus.Sources, Source{Number: 3, Text: broken})

	result := mustBuild(t, New(), corpus)

	entry, _ := result.Report.ByNumber(3)
	if entry.Outcome != OutcomeFailed || entry.Stage != StageMetadata {
		t.Errorf("document 3 entry = %+v, want failed at metadata", entry)
	}
	if !errors.Is(entry.Err, ErrMissingField) {
		t.Errorf("entry.Err = %v, want ErrMissingField", entry.Err)
	}

	// Healthy documents still render
	if result.Documents[1] == nil || result.Documents[8] == nil {
		t.Error("healthy documents should render despite the broken one")
	}

	// The index is withheld for the run
	if result.Index != nil {
		t.Error("Index should be nil when metadata parsing failed")
	}
	idxEntry, _ := result.Report.ByNumber(index.Number)
	if idxEntry.Outcome != OutcomeFailed || idxEntry.Stage != StageIndex {
		t.Errorf("index entry = %+v, want failed at index", idxEntry)
	}
	if !errors.Is(idxEntry.Err, ErrIndexWithheld) {
		t.Errorf("index entry.Err = %v, want ErrIndexWithheld", idxEntry.Err)
	}

	table := mustDecode(t, result.Fingerprints)
	if _, ok := table[3]; ok {
		t.Error("failed document must not get a fingerprint entry")
	}
	if _, ok := table[index.Number]; ok {
		t.Error("withheld index must not get a fingerprint entry")
	}
	if _, ok := table[1]; !ok {
		t.Error("rendered document missing from fingerprint table")
	}
}

func TestBuild_FailedDocumentKeepsPriorFingerprint(t *testing.T) {
	t.Parallel()

	b := New()
	corpus := testCorpus()
	good8 := corpus.Sources[1].Text

	first := mustBuild(t, b, corpus)
	firstTable := mustDecode(t, first.Fingerprints)

	// Status line dropped: metadata now fails
	corpus.Sources[1].Text = []byte(`PEP: 8
Title: Style Guide for Python Code
Author: Barry Warsaw <barry@python.org>
Type: Process
Created: 05-Jul-2001

Broken now.
`)
	corpus.Prior = first.Fingerprints
	second := mustBuild(t, b, corpus)
	secondTable := mustDecode(t, second.Fingerprints)

	if secondTable[8] != firstTable[8] {
		t.Errorf("table[8] = %q, want prior entry %q carried over", secondTable[8], firstTable[8])
	}
	if secondTable[index.Number] != firstTable[index.Number] {
		t.Error("withheld index should carry its prior fingerprint entry")
	}

	// Restoring the exact prior text matches the carried entry, so the
	// document skips: its last written output was built from that text.
	corpus.Sources[1].Text = good8
	corpus.Prior = second.Fingerprints
	third := mustBuild(t, b, corpus)
	if entry, _ := third.Report.ByNumber(8); entry.Outcome != OutcomeSkipped {
		t.Errorf("document 8 outcome = %q, want skipped after restore", entry.Outcome)
	}
}

func TestBuild_RenderFailureIsolation(t *testing.T) {
	t.Parallel()

	b := New()
	b.engine = &failingEngine{
		inner: b.engine,
		fail: map[int]error{
			8: &stageError{stage: StageRender, err: fmt.Errorf("heading: %w", ErrUnrenderableNode)},
		},
	}

	result := mustBuild(t, b, testCorpus())

	entry, _ := result.Report.ByNumber(8)
	if entry.Outcome != OutcomeFailed || entry.Stage != StageRender {
		t.Errorf("entry = %+v, want failed at render", entry)
	}
	if !errors.Is(entry.Err, ErrUnrenderableNode) {
		t.Errorf("entry.Err = %v, want ErrUnrenderableNode", entry.Err)
	}

	if result.Documents[1] == nil {
		t.Error("document 1 should render despite document 8 failing")
	}

	// Downstream failures keep their metadata row; the index renders with
	// an omission marker instead of being withheld
	if result.Index == nil {
		t.Fatal("Index is nil")
	}
	idx := string(result.Index.HTML)
	if !strings.Contains(idx, "Style Guide for Python Code") {
		t.Error("index missing failed document's title")
	}
	if !strings.Contains(idx, "8*") {
		t.Error("index missing omission marker for document 8")
	}

	table := mustDecode(t, result.Fingerprints)
	if _, ok := table[8]; ok {
		t.Error("failed document must not get a fingerprint entry")
	}
	if _, ok := table[index.Number]; !ok {
		t.Error("index should keep its fingerprint entry when it rendered")
	}
}

func TestBuild_Idempotence(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	first := mustBuild(t, New(), corpus)
	second := mustBuild(t, New(), corpus)

	for n, doc := range first.Documents {
		other := second.Documents[n]
		if other == nil {
			t.Fatalf("second run missing document %d", n)
		}
		if !bytes.Equal(doc.HTML, other.HTML) {
			t.Errorf("document %d HTML differs across identical runs", n)
		}
	}
	if !bytes.Equal(first.Index.HTML, second.Index.HTML) {
		t.Error("index HTML differs across identical runs")
	}
	if !bytes.Equal(first.Fingerprints, second.Fingerprints) {
		t.Error("fingerprint tables differ across identical runs")
	}
}

func TestBuild_SanitizerStripsDangerousMarkup(t *testing.T) {
	t.Parallel()

	body := "Before.\n\n" +
		"<script>alert(1)</script>\n\n" +
		"<p onclick=\"steal()\">Click me</p>\n\n" +
		"[run](javascript:alert(1))\n\nAfter.\n"
	corpus := Corpus{Sources: []Source{
		{Number: 42, Text: sourceText(42, "Markup Edge Cases", "Draft", "Informational", "01-Feb-2003", body)},
	}}

	result := mustBuild(t, New(), corpus)

	doc := result.Documents[42]
	if doc == nil {
		t.Fatal("Documents[42] is nil")
	}
	html := string(doc.HTML)
	for _, forbidden := range []string{"<script", "onclick", "javascript:", "alert(1)"} {
		if strings.Contains(html, forbidden) {
			t.Errorf("sanitized HTML still contains %q:\n%s", forbidden, html)
		}
	}
	if !strings.Contains(html, "Before.") || !strings.Contains(html, "After.") {
		t.Error("sanitizer dropped surrounding content")
	}
}

func TestBuild_CustomDirectiveTable(t *testing.T) {
	t.Parallel()

	noteDoc := Corpus{Sources: []Source{
		{Number: 20, Text: sourceText(20, "The Zen of Python", "Active", "Informational", "19-Aug-2004",
			".. note:: Beautiful is better than ugly.\n")},
	}}

	t.Run("default table expands note", func(t *testing.T) {
		t.Parallel()

		result := mustBuild(t, New(), noteDoc)
		doc := result.Documents[20]
		if doc == nil {
			t.Fatal("Documents[20] is nil")
		}
		if !strings.Contains(string(doc.HTML), "banner-note") {
			t.Errorf("HTML missing note banner:\n%s", doc.HTML)
		}
	})

	t.Run("table without note rejects it", func(t *testing.T) {
		t.Parallel()

		table := transform.DefaultDirectives()
		delete(table, "note")

		result := mustBuild(t, New(withDirectives(table)), noteDoc)
		entry, _ := result.Report.ByNumber(20)
		if !errors.Is(entry.Err, ErrUnknownDirective) {
			t.Errorf("entry.Err = %v, want ErrUnknownDirective", entry.Err)
		}
	})
}

func TestBuild_CanonicalURLOverride(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	corpus.Sources[0].URL = "https://peps.python.org/pep-0001/"

	result := mustBuild(t, New(), corpus)

	doc8 := result.Documents[8]
	if doc8 == nil {
		t.Fatal("Documents[8] is nil")
	}
	if !strings.Contains(string(doc8.HTML), `href="https://peps.python.org/pep-0001/"`) {
		t.Error("reference to document 1 should use its canonical URL override")
	}
}

func TestBuild_URLTemplates(t *testing.T) {
	t.Parallel()

	b := New(
		WithDocumentURL("/proposals/%04d/index.html"),
		WithRFCURL("https://www.rfc-editor.org/rfc/rfc%d"),
	)
	corpus := Corpus{Sources: []Source{
		{Number: 1, Text: sourceText(1, "PEP Purpose and Guidelines", "Active", "Process", "13-Jun-2000",
			"Background.\n")},
		{Number: 5, Text: sourceText(5, "Guidelines for Language Evolution", "Superseded", "Informational", "26-Oct-2000",
			"See PEP 1 and RFC 2822 for details.\n")},
	}}

	result := mustBuild(t, b, corpus)

	html := string(result.Documents[5].HTML)
	if !strings.Contains(html, `href="/proposals/0001/index.html"`) {
		t.Errorf("document link ignored template:\n%s", html)
	}
	if !strings.Contains(html, `href="https://www.rfc-editor.org/rfc/rfc2822"`) {
		t.Errorf("RFC link ignored template:\n%s", html)
	}
}

func TestBuild_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Build(ctx, testCorpus())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuild_ParallelWorkers(t *testing.T) {
	t.Parallel()

	var sources []Source
	for i := 1; i <= 12; i++ {
		sources = append(sources, Source{
			Number: i,
			Text: sourceText(i, fmt.Sprintf("Proposal %d", i), "Draft", "Informational", "02-Jan-2006",
				fmt.Sprintf("Body of proposal %d.\n\n## Details\n\nSome details.\n", i)),
		})
	}

	result := mustBuild(t, New(WithWorkers(4)), Corpus{Sources: sources})

	if len(result.Documents) != 12 {
		t.Errorf("Documents has %d entries, want 12", len(result.Documents))
	}
	rendered, _, failed := result.Report.Counts()
	if rendered != 13 || failed != 0 {
		t.Errorf("Counts() rendered=%d failed=%d, want 13/0", rendered, failed)
	}
}

func TestBuild_LogsRunLifecycle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mustBuild(t, New(WithLogger(logger)), testCorpus())

	logs := buf.String()
	for _, want := range []string{"build starting", "build finished", "run="} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestPipelineEngine_RecoversPanic(t *testing.T) {
	t.Parallel()

	engine := &pipelineEngine{pool: newEnginePool(1)}
	pipe := transform.New(refs.New(nil, "", ""), nil)

	// A nil header makes the job dereference panic inside the pipeline
	_, err := engine.BuildDocument(context.Background(), &documentJob{
		number: 7,
		name:   "pep-0007",
		body:   []byte("Body.\n"),
		pipe:   pipe,
	})
	if err == nil {
		t.Fatal("BuildDocument() should report the recovered panic")
	}
	if got := failureStage(err); got != StageInternal {
		t.Errorf("failureStage(err) = %q, want %q", got, StageInternal)
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("err = %v, want panic description", err)
	}
}

func TestParseMetadata(t *testing.T) {
	t.Parallel()

	t.Run("valid header", func(t *testing.T) {
		t.Parallel()

		meta, err := ParseMetadata(8, sourceText(8, "Style Guide for Python Code", "Active", "Process", "05-Jul-2001", "Body.\n"))
		if err != nil {
			t.Fatalf("ParseMetadata() error = %v", err)
		}
		if meta.Number != 8 || meta.Title != "Style Guide for Python Code" {
			t.Errorf("meta = %+v", meta)
		}
		if meta.Status != StatusActive || meta.Kind != KindProcess {
			t.Errorf("Status/Kind = %q/%q", meta.Status, meta.Kind)
		}
		if !meta.Status.Valid() || !meta.Kind.Valid() {
			t.Error("parsed enums should be valid")
		}
		want := []Author{{Name: "Barry Warsaw", Email: "barry@python.org"}}
		if len(meta.Authors) != 1 || meta.Authors[0] != want[0] {
			t.Errorf("Authors = %+v, want %+v", meta.Authors, want)
		}
	})

	t.Run("number mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMetadata(9, sourceText(8, "Style Guide for Python Code", "Active", "Process", "05-Jul-2001", "Body.\n"))
		if !errors.Is(err, ErrNumberMismatch) {
			t.Errorf("ParseMetadata() error = %v, want ErrNumberMismatch", err)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMetadata(8, []byte("PEP: 8\nTitle: Incomplete\n\nBody.\n"))
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("ParseMetadata() error = %v, want ErrMissingField", err)
		}
	})
}
