// Package index synthesizes the corpus index document. The index is
// ordinary source text with a header block and a markdown body, so it
// flows through the same parse, transform, render, and sanitize path as
// every other document. Grouping is by status, then category, in the
// canonical vocabulary orders; rows sort by creation date and then by
// number.
package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-pep2html/internal/dateutil"
	"github.com/alnah/go-pep2html/internal/header"
)

const (
	// Number is the document number reserved for the index.
	Number = 0

	// SourceName is the provenance name the index carries in its footer.
	SourceName = "pep-0000"

	// DefaultTitle is used when no index title is configured.
	DefaultTitle = "Index of Python Enhancement Proposals"

	// DefaultAuthor is used when no index author is configured.
	DefaultAuthor = "The Corpus Editors"
)

// Entry is one document row in the index.
type Entry struct {
	Number  int
	Title   string
	Status  string
	Kind    string
	Created time.Time
	Authors []string

	// Omitted marks a document that produced no page in this run. Its row
	// stays in the index, unlinked and marked, so the corpus listing
	// remains complete.
	Omitted bool
}

// Meta carries the index document's own header values. Zero fields fall
// back to the package defaults; a zero Created falls back to the latest
// entry date so the synthesized source is stable across runs.
type Meta struct {
	Title   string
	Author  string
	Created time.Time
}

// FromHeader builds an index entry from a parsed document header. Authors
// without a display name fall back to their masked email.
func FromHeader(h *header.Header, omitted bool) Entry {
	names := make([]string, 0, len(h.Authors))
	for _, a := range h.Authors {
		name := a.Name
		if name == "" {
			name = strings.Replace(a.Email, "@", " at ", 1)
		}
		names = append(names, name)
	}
	return Entry{
		Number:  h.Number,
		Title:   h.Title,
		Status:  h.Status,
		Kind:    h.Kind,
		Created: h.Created,
		Authors: names,
		Omitted: omitted,
	}
}

// Synthesize emits the complete index source. Output is deterministic for
// a given entry set regardless of input order, so the index fingerprint
// only moves when some document's metadata does.
func Synthesize(entries []Entry, meta Meta) []byte {
	title := headerValue(meta.Title)
	if title == "" {
		title = DefaultTitle
	}
	author := headerValue(meta.Author)
	if author == "" {
		author = DefaultAuthor
	}
	created := meta.Created
	if created.IsZero() {
		created = LatestCreated(entries)
	}
	if created.IsZero() {
		created = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "PEP: %d\n", Number)
	fmt.Fprintf(&sb, "Title: %s\n", title)
	fmt.Fprintf(&sb, "Author: %s\n", author)
	sb.WriteString("Status: Active\n")
	sb.WriteString("Type: Informational\n")
	fmt.Fprintf(&sb, "Created: %s\n", dateutil.FormatDisplay(created))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "This index lists %d proposals in the corpus, grouped by status\nand category.\n\n", len(entries))

	groups := groupEntries(entries)
	for _, status := range header.Statuses {
		kinds := groups[status]
		if len(kinds) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s Proposals\n\n", status)
		for _, kind := range header.Kinds {
			rows := kinds[kind]
			if len(rows) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n\n", kind)
			writeTable(&sb, rows)
		}
	}

	if anyOmitted(entries) {
		sb.WriteString("Entries marked \\* produced no page in this run; earlier output,\nif any, may be stale.\n")
	}

	return []byte(sb.String())
}

// LatestCreated returns the most recent creation date among entries, or
// the zero time when there are none.
func LatestCreated(entries []Entry) time.Time {
	var latest time.Time
	for _, e := range entries {
		if e.Created.After(latest) {
			latest = e.Created
		}
	}
	return latest
}

func groupEntries(entries []Entry) map[string]map[string][]Entry {
	groups := make(map[string]map[string][]Entry)
	for _, e := range entries {
		kinds := groups[e.Status]
		if kinds == nil {
			kinds = make(map[string][]Entry)
			groups[e.Status] = kinds
		}
		kinds[e.Kind] = append(kinds[e.Kind], e)
	}
	return groups
}

func writeTable(sb *strings.Builder, rows []Entry) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Created.Equal(rows[j].Created) {
			return rows[i].Created.Before(rows[j].Created)
		}
		return rows[i].Number < rows[j].Number
	})

	sb.WriteString("| PEP | Title | Authors |\n")
	sb.WriteString("|-----|-------|---------|\n")
	for _, e := range rows {
		fmt.Fprintf(sb, "| %s | %s | %s |\n",
			numberCell(e), escapeCell(e.Title), escapeCell(strings.Join(e.Authors, ", ")))
	}
	sb.WriteString("\n")
}

// numberCell writes the reference cell. Regular rows spell the reference
// out so resolution links them to their pages; omitted rows use the bare
// number with a marker, because their page may not exist.
func numberCell(e Entry) string {
	if e.Omitted {
		return fmt.Sprintf("%d\\*", e.Number)
	}
	return fmt.Sprintf("PEP %d", e.Number)
}

func anyOmitted(entries []Entry) bool {
	for _, e := range entries {
		if e.Omitted {
			return true
		}
	}
	return false
}

// cellEscaper keeps titles and names literal inside table rows.
var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	"`", "\\`",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// headerValue flattens a configured value onto one line.
func headerValue(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
