// Package header parses the RFC-822-style metadata block that opens every
// proposal document. Fields are case-insensitive and order-independent;
// continuation lines fold into the previous value. Parsing is a pure
// function over the raw source bytes.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-pep2html/internal/dateutil"
)

// Sentinel errors for metadata parsing.
var (
	// ErrHeaderBlock indicates the header block itself could not be read.
	ErrHeaderBlock = errors.New("malformed header block")

	// ErrMissingField indicates a required header field is absent or empty.
	ErrMissingField = errors.New("missing required header field")

	// ErrDuplicateField indicates a header field appears more than once.
	ErrDuplicateField = errors.New("duplicate header field")

	// ErrUnknownField indicates a header field outside the recognized set.
	ErrUnknownField = errors.New("unknown header field")

	// ErrInvalidEnum indicates a Status or Type value outside the closed sets.
	ErrInvalidEnum = errors.New("invalid enum value")

	// ErrInvalidNumber indicates the PEP field is not a non-negative
	// integer. Zero is accepted here; it is the corpus index and callers
	// decide whether user sources may claim it.
	ErrInvalidNumber = errors.New("invalid document number")

	// ErrNumberMismatch indicates the header number differs from the
	// corpus-assigned one.
	ErrNumberMismatch = errors.New("document number mismatch")

	// ErrMalformedAuthors indicates the Author field cannot be split into
	// name/email entries.
	ErrMalformedAuthors = errors.New("malformed author list")

	// ErrInvalidReference indicates a relationship field entry is not a
	// positive integer.
	ErrInvalidReference = errors.New("invalid reference list")

	// ErrInvalidDate indicates the Created field does not match the
	// DD-Mon-YYYY layout.
	ErrInvalidDate = dateutil.ErrInvalidDate
)

// MaxSourceSize bounds the raw source accepted by Parse. Variable to allow
// testing the limit without allocating huge inputs.
var MaxSourceSize = 4 << 20

// MaxValueLength bounds any single header value after unfolding.
const MaxValueLength = 1000

// Statuses lists the recognized lifecycle states. The order is canonical:
// the corpus index presents its status groups in this order.
var Statuses = []string{
	"Draft",
	"Active",
	"Accepted",
	"Rejected",
	"Final",
	"Superseded",
	"Withdrawn",
	"Deferred",
}

// Kinds lists the recognized proposal categories in canonical order.
var Kinds = []string{
	"Standards Track",
	"Informational",
	"Process",
}

// ValidStatus reports whether v is a recognized status value.
func ValidStatus(v string) bool { return inVocabulary(Statuses, v) }

// ValidKind reports whether v is a recognized category value.
func ValidKind(v string) bool { return inVocabulary(Kinds, v) }

func inVocabulary(vocab []string, v string) bool {
	for _, entry := range vocab {
		if entry == v {
			return true
		}
	}
	return false
}

// Author is one entry of the Author field. Email is empty for bare names.
type Author struct {
	Name  string
	Email string
}

// Header is the parsed metadata block of one proposal document.
type Header struct {
	Number        int
	Title         string
	Authors       []Author
	Status        string
	Kind          string
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

// knownFields maps canonical MIME key forms to the display names used in
// error messages. net/textproto canonicalizes "PEP" to "Pep", so lookups
// must go through the canonical form.
var knownFields = map[string]string{
	textproto.CanonicalMIMEHeaderKey("PEP"):            "PEP",
	textproto.CanonicalMIMEHeaderKey("Title"):          "Title",
	textproto.CanonicalMIMEHeaderKey("Author"):         "Author",
	textproto.CanonicalMIMEHeaderKey("Status"):         "Status",
	textproto.CanonicalMIMEHeaderKey("Type"):           "Type",
	textproto.CanonicalMIMEHeaderKey("Created"):        "Created",
	textproto.CanonicalMIMEHeaderKey("Requires"):       "Requires",
	textproto.CanonicalMIMEHeaderKey("Replaces"):       "Replaces",
	textproto.CanonicalMIMEHeaderKey("Superseded-By"):  "Superseded-By",
	textproto.CanonicalMIMEHeaderKey("Python-Version"): "Python-Version",
	textproto.CanonicalMIMEHeaderKey("Discussions-To"): "Discussions-To",
	textproto.CanonicalMIMEHeaderKey("Post-History"):   "Post-History",
	textproto.CanonicalMIMEHeaderKey("Resolution"):     "Resolution",
	textproto.CanonicalMIMEHeaderKey("Topic"):          "Topic",
}

// requiredFields lists the display names of fields that must be present,
// in the order missing-field errors are reported.
var requiredFields = []string{"PEP", "Title", "Author", "Status", "Type", "Created"}

// Parse validates the header block of source against the corpus-assigned
// number and returns the structured header plus the remaining body bytes.
// The body is normalized to end with a single trailing newline.
func Parse(number int, source []byte) (*Header, []byte, error) {
	if len(source) > MaxSourceSize {
		return nil, nil, fmt.Errorf("%w: source exceeds %d bytes", ErrHeaderBlock, MaxSourceSize)
	}

	// A terminating blank line is appended so header-only sources parse
	// cleanly; the body is re-trimmed below.
	buf := make([]byte, 0, len(source)+2)
	buf = append(buf, source...)
	buf = append(buf, '\n', '\n')

	msg, err := mail.ReadMessage(bytes.NewReader(buf))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHeaderBlock, err)
	}

	if err := checkFields(msg.Header); err != nil {
		return nil, nil, err
	}

	h, err := buildHeader(number, msg.Header)
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading body: %v", ErrHeaderBlock, err)
	}
	body = bytes.TrimRight(body, "\n")
	if len(body) > 0 {
		body = append(body, '\n')
	}

	return h, body, nil
}

// checkFields rejects unknown, duplicated, and oversized fields. Keys are
// visited in sorted order so the reported error does not depend on map
// iteration order.
func checkFields(fields mail.Header) error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		display, known := knownFields[key]
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		values := fields[key]
		if len(values) > 1 {
			return fmt.Errorf("%w: %s", ErrDuplicateField, display)
		}
		if len(values[0]) > MaxValueLength {
			return fmt.Errorf("%w: field %s exceeds %d bytes", ErrHeaderBlock, display, MaxValueLength)
		}
	}
	return nil
}

func buildHeader(number int, fields mail.Header) (*Header, error) {
	for _, display := range requiredFields {
		if fieldValue(fields, display) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, display)
		}
	}

	headerNumber, err := parseNumber(fieldValue(fields, "PEP"))
	if err != nil {
		return nil, err
	}
	if headerNumber != number {
		return nil, fmt.Errorf("%w: header says %d, corpus says %d", ErrNumberMismatch, headerNumber, number)
	}

	authors, err := parseAuthors(fieldValue(fields, "Author"))
	if err != nil {
		return nil, err
	}

	status := fieldValue(fields, "Status")
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidEnum, status)
	}
	kind := fieldValue(fields, "Type")
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidEnum, kind)
	}

	created, err := dateutil.ParseHeader(fieldValue(fields, "Created"))
	if err != nil {
		return nil, fmt.Errorf("field Created: %w", err)
	}

	h := &Header{
		Number:        number,
		Title:         fieldValue(fields, "Title"),
		Authors:       authors,
		Status:        status,
		Kind:          kind,
		Created:       created,
		PythonVersion: fieldValue(fields, "Python-Version"),
		DiscussionsTo: fieldValue(fields, "Discussions-To"),
		PostHistory:   splitList(fieldValue(fields, "Post-History")),
		Resolution:    fieldValue(fields, "Resolution"),
		Topic:         splitList(fieldValue(fields, "Topic")),
	}

	for _, ref := range []struct {
		display string
		dst     *[]int
	}{
		{"Requires", &h.Requires},
		{"Replaces", &h.Replaces},
		{"Superseded-By", &h.SupersededBy},
	} {
		ids, err := parseRefList(ref.display, fieldValue(fields, ref.display))
		if err != nil {
			return nil, err
		}
		*ref.dst = ids
	}

	return h, nil
}

// fieldValue returns the trimmed value of the named field, or "" when the
// field is absent. Callers pass display names; canonicalization happens here.
func fieldValue(fields mail.Header, display string) string {
	values, ok := fields[textproto.CanonicalMIMEHeaderKey(display)]
	if !ok {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func parseNumber(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return n, nil
}

// parseAuthors splits the Author field into name/email entries. Address-list
// syntax is tried first; the fallback splits on commas and accepts bare
// names without emails, which the address-list grammar rejects.
func parseAuthors(value string) ([]Author, error) {
	if list, err := mail.ParseAddressList(value); err == nil {
		authors := make([]Author, 0, len(list))
		for _, addr := range list {
			authors = append(authors, Author{Name: addr.Name, Email: addr.Address})
		}
		return authors, nil
	}

	var authors []Author
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("%w: empty entry in %q", ErrMalformedAuthors, value)
		}
		if strings.ContainsAny(entry, "<@") {
			addr, err := mail.ParseAddress(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedAuthors, entry)
			}
			authors = append(authors, Author{Name: addr.Name, Email: addr.Address})
			continue
		}
		authors = append(authors, Author{Name: entry})
	}
	return authors, nil
}

// parseRefList parses a comma-separated list of positive document numbers.
// An empty value yields a nil list.
func parseRefList(display, value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %s entry %q", ErrInvalidReference, display, part)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
