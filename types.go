package pep2html

import (
	"time"

	"github.com/alnah/go-pep2html/internal/header"
)

// Status is the lifecycle stage of a proposal.
type Status string

// Proposal lifecycle statuses, in canonical vocabulary order. The index
// groups documents in this order.
const (
	StatusDraft      Status = "Draft"
	StatusActive     Status = "Active"
	StatusAccepted   Status = "Accepted"
	StatusRejected   Status = "Rejected"
	StatusFinal      Status = "Final"
	StatusSuperseded Status = "Superseded"
	StatusWithdrawn  Status = "Withdrawn"
	StatusDeferred   Status = "Deferred"
)

// Valid reports whether s is one of the canonical statuses.
// Comparison is exact: statuses are display strings, not identifiers.
func (s Status) Valid() bool {
	return header.ValidStatus(string(s))
}

// Kind is the proposal category.
type Kind string

// Proposal categories.
const (
	KindStandardsTrack Kind = "Standards Track"
	KindInformational  Kind = "Informational"
	KindProcess        Kind = "Process"
)

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	return header.ValidKind(string(k))
}

// Author identifies one document author.
type Author struct {
	Name  string
	Email string // empty when the source lists a bare name
}

// Metadata is the parsed header block of one document.
// Required fields are always set; the rest mirror optional header fields
// and are zero when absent.
type Metadata struct {
	Number        int
	Title         string
	Authors       []Author
	Status        Status
	Kind          Kind
	Created       time.Time
	Requires      []int
	Replaces      []int
	SupersededBy  []int
	PythonVersion string
	DiscussionsTo string
	PostHistory   []string
	Resolution    string
	Topic         []string
}

// Source is one raw document fed to a build.
type Source struct {
	Number int    // corpus-assigned id; positive, id 0 is reserved for the index
	Text   []byte // raw source bytes, header block included
	URL    string // optional canonical-URL override for cross-references
}

// Corpus is the complete input to one build run.
type Corpus struct {
	Sources []Source
	Prior   []byte // fingerprint table from the previous run; nil rebuilds everything
}

// TOCEntry is one row of a document outline.
type TOCEntry struct {
	Text   string
	Anchor string
	Depth  int // heading depth, 1-based
}

// Diagnostic records a cross-reference that pointed at nothing.
// The referencing document still renders; the reference becomes a marker.
type Diagnostic struct {
	Source  int    // document the reference appears in
	Target  int    // document or RFC the reference points at
	Label   string // display text of the reference
	Message string
}

// RenderedDocument is one sanitized HTML fragment with its outline and
// unresolved-reference diagnostics.
type RenderedDocument struct {
	Number      int
	Fingerprint string
	Title       string
	HTML        []byte
	TOC         []TOCEntry
	Diagnostics []Diagnostic
}

// Outcome classifies what a build run did with one document.
type Outcome string

// Per-document outcomes.
const (
	OutcomeRendered Outcome = "rendered"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Pipeline stages reported for failed documents.
const (
	StageMetadata  = "metadata"
	StageTransform = "transform"
	StageRender    = "render"
	StageSanitize  = "sanitize"
	StageIndex     = "index"
	StageInternal  = "internal" // recovered panic
)

// ReportEntry is the outcome of one document for one build run.
// Stage and Err are set only when Outcome is OutcomeFailed.
type ReportEntry struct {
	Number  int
	Outcome Outcome
	Stage   string
	Err     error
}

// Report lists one entry per document, index included, sorted by number.
type Report []ReportEntry

// Counts tallies entries by outcome.
func (r Report) Counts() (rendered, skipped, failed int) {
	for _, e := range r {
		switch e.Outcome {
		case OutcomeRendered:
			rendered++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return rendered, skipped, failed
}

// ByNumber returns the entry for one document number.
func (r Report) ByNumber(number int) (ReportEntry, bool) {
	for _, e := range r {
		if e.Number == number {
			return e, true
		}
	}
	return ReportEntry{}, false
}

// BuildResult is the output of one build run.
// Documents holds only documents fully rendered this run; skipped and failed
// documents are absent here and accounted for in Report.
type BuildResult struct {
	RunID        string
	Documents    map[int]*RenderedDocument
	Index        *RenderedDocument // nil when skipped or withheld
	Fingerprints []byte            // encoded table to persist for the next run
	Report       Report
}

// Option configures a Builder.
type Option func(*Builder)

// builderConfig holds internal configuration for Builder.
type builderConfig struct {
	workers     int
	documentURL string
	rfcURL      string
	indexTitle  string
	indexAuthor string
}
