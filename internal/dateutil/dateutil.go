// Package dateutil parses and formats proposal header dates.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate indicates a date outside the accepted header layout.
var ErrInvalidDate = errors.New("invalid date")

// MaxDateLength limits date value length to prevent abuse.
const MaxDateLength = 30

// Header dates use the day-month-year layout the corpus has carried since
// its earliest documents, e.g. "14-Aug-2001". Single-digit days appear both
// padded ("05-Jul-2001") and unpadded ("1-Jun-2000"); both are accepted.
const (
	// HeaderLayout accepts one- and two-digit days.
	HeaderLayout = "2-Jan-2006"
	// DisplayLayout is the canonical zero-padded form used in output.
	DisplayLayout = "02-Jan-2006"
)

// ParseHeader parses a Created header value.
// Returns ErrInvalidDate if the value is empty, too long, or not in the
// DD-Mon-YYYY layout.
func ParseHeader(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	if len(trimmed) > MaxDateLength {
		return time.Time{}, fmt.Errorf("%w: value exceeds %d characters", ErrInvalidDate, MaxDateLength)
	}

	t, err := time.Parse(HeaderLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want DD-Mon-YYYY, e.g. 14-Aug-2001)", ErrInvalidDate, trimmed)
	}
	return t, nil
}

// FormatDisplay renders a date in the canonical zero-padded header form.
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}
