// Package fingerprint computes content fingerprints and classifies corpus
// documents against the previous run.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrBadTable indicates a fingerprint table that could not be decoded.
var ErrBadTable = errors.New("malformed fingerprint table")

// Fingerprint is the hex-encoded SHA-256 digest of a document's raw source.
// Identical source bytes always produce the identical fingerprint; any byte
// change produces a different one.
type Fingerprint string

// Compute fingerprints raw source bytes.
func Compute(source []byte) Fingerprint {
	sum := sha256.Sum256(source)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Status classifies a document relative to the previous run.
type Status int

const (
	// StatusNew means the document number has no prior fingerprint.
	StatusNew Status = iota
	// StatusChanged means the prior fingerprint differs.
	StatusChanged
	// StatusUnchanged means the fingerprint matches; downstream work is skipped.
	StatusUnchanged
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusChanged:
		return "changed"
	case StatusUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Table maps document numbers to the fingerprint their last fully written
// output was built from. The index document is stored under its reserved
// number like any other entry.
type Table map[int]Fingerprint

// Classify compares a document's fingerprint against the previous table.
func (t Table) Classify(number int, fp Fingerprint) Status {
	prior, ok := t[number]
	if !ok {
		return StatusNew
	}
	if prior != fp {
		return StatusChanged
	}
	return StatusUnchanged
}

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for n, fp := range t {
		out[n] = fp
	}
	return out
}

// Corpus derives the corpus-wide fingerprint: the digest over every
// "number:fingerprint" line sorted by number. A change to any document's
// content, or adding or removing a document, changes it. Callers pass a
// table of ordinary documents only; the result is what gets stored under
// the index's reserved number.
func (t Table) Corpus() Fingerprint {
	numbers := make([]int, 0, len(t))
	for n := range t {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	h := sha256.New()
	for _, n := range numbers {
		fmt.Fprintf(h, "%d:%s\n", n, t[n])
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// tableFile is the on-disk shape of a fingerprint table. Numbers become
// string keys so the JSON stays an object with sorted, diff-friendly keys.
type tableFile struct {
	Documents map[string]Fingerprint `json:"documents"`
}

// Encode serializes the table for persistence. Output is deterministic:
// encoding the same table twice yields identical bytes.
func (t Table) Encode() ([]byte, error) {
	file := tableFile{Documents: make(map[string]Fingerprint, len(t))}
	for n, fp := range t {
		file.Documents[strconv.Itoa(n)] = fp
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding fingerprint table: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted fingerprint table.
func Decode(data []byte) (Table, error) {
	var file tableFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	t := make(Table, len(file.Documents))
	for key, fp := range file.Documents {
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: key %q is not a document number", ErrBadTable, key)
		}
		t[n] = fp
	}
	return t, nil
}
