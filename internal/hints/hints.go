// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"strings"
)

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-pep2html/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path (contains .config/go-pep2html) to suggest
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-pep2html") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForCorpusEmpty returns hints when source discovery finds no documents.
func ForCorpusEmpty() string {
	return formatHints([]string{
		"sources must be named pep-NNNN.md",
		"use --corpus to point at the corpus root",
	})
}

// ForHeaderParse returns a hint about the required header layout.
func ForHeaderParse() string {
	return format("headers need PEP, Title, Author, Status, Type, and Created before the first blank line")
}

// ForReservedNumber returns a hint for sources claiming the index number.
func ForReservedNumber() string {
	return format("number 0 is the generated index; renumber the source")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
