package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	pep2html "github.com/alnah/go-pep2html"
)

// Sentinel errors for source discovery.
var (
	ErrEmptyCorpus        = errors.New("no sources found")
	ErrReadSource         = errors.New("failed to read source file")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// sourcePattern matches canonical source file names: pep-NNNN.md.
var sourcePattern = regexp.MustCompile(`^pep-(\d{4})\.md$`)

// discoverSources reads every pep-NNNN.md file in dir, top level only.
// Files that do not match the naming scheme are ignored; the corpus
// directory commonly carries a README and build scripts.
func discoverSources(dir string) ([]pep2html.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var sources []pep2html.Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sourcePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue // unreachable given the pattern
		}

		path := filepath.Join(dir, e.Name())
		text, err := os.ReadFile(path) // #nosec G304 -- discovered path
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrReadSource, path, err)
		}

		sources = append(sources, pep2html.Source{Number: number, Text: text})
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Number < sources[j].Number })
	return sources, nil
}

// outputName returns the HTML file name for a document number.
func outputName(number int) string {
	return fmt.Sprintf("pep-%04d.html", number)
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > pep2html.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, pep2html.MaxPoolSize)
	}
	return nil
}
