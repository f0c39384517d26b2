package main

import (
	"errors"
	"os"

	pep2html "github.com/alnah/go-pep2html"
	"github.com/alnah/go-pep2html/internal/assets"
	"github.com/alnah/go-pep2html/internal/config"
)

// Exit codes for the pep2html CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied, empty corpus
	ExitCorpus  = 4 // Per-document failures in an otherwise completed run
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Per-document failures (exit 4): the run completed, some documents did not
	if errors.Is(err, ErrDocumentsFailed) ||
		errors.Is(err, ErrCheckFailed) {
		return ExitCorpus
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadSource) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrEmptyCorpus) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrBadTemplate) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, pep2html.ErrReservedNumber) ||
		errors.Is(err, pep2html.ErrDuplicateSource) ||
		errors.Is(err, pep2html.ErrBadFingerprints) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnexpectedArg) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	return ExitGeneral
}
