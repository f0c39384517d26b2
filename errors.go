package pep2html

import (
	"errors"

	"github.com/alnah/go-pep2html/internal/fingerprint"
	"github.com/alnah/go-pep2html/internal/header"
	"github.com/alnah/go-pep2html/internal/render"
	"github.com/alnah/go-pep2html/internal/sanitize"
	"github.com/alnah/go-pep2html/internal/transform"
)

// Sentinel errors for library operations. Component errors are aliased here
// so callers can classify report entries with errors.Is without reaching
// into internal packages.
var (
	// Corpus-level errors fail the run as a whole.
	ErrNoSources       = errors.New("corpus has no sources")
	ErrDuplicateSource = errors.New("duplicate document number")
	ErrReservedNumber  = errors.New("document number 0 is reserved for the index")
	ErrBadFingerprints = fingerprint.ErrBadTable

	// ErrIndexWithheld marks the index entry in the report when any document
	// failed metadata parsing this run.
	ErrIndexWithheld = errors.New("index withheld")

	// Metadata parsing errors.
	ErrHeaderBlock      = header.ErrHeaderBlock
	ErrMissingField     = header.ErrMissingField
	ErrDuplicateField   = header.ErrDuplicateField
	ErrUnknownField     = header.ErrUnknownField
	ErrInvalidEnum      = header.ErrInvalidEnum
	ErrInvalidNumber    = header.ErrInvalidNumber
	ErrNumberMismatch   = header.ErrNumberMismatch
	ErrMalformedAuthors = header.ErrMalformedAuthors
	ErrInvalidReference = header.ErrInvalidReference
	ErrInvalidDate      = header.ErrInvalidDate

	// Transform errors.
	ErrDuplicateTitle     = transform.ErrDuplicateTitle
	ErrUnknownDirective   = transform.ErrUnknownDirective
	ErrMalformedDirective = transform.ErrMalformedDirective

	// Rendering and sanitization errors.
	ErrUnrenderableNode  = render.ErrUnrenderableNode
	ErrSanitizeViolation = sanitize.ErrViolation
)
