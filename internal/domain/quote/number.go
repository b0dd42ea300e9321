package quote

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// NumberPrefix is the fixed document-type prefix
	NumberPrefix = "DEV"
	// MaxSequence is the highest sequence that fits the 4-digit format
	MaxSequence = 9999
	// MinYear and MaxYear bound the 4-digit year component
	MinYear = 1000
	MaxYear = 9999
)

var numberPattern = regexp.MustCompile(`^DEV-(\d{4})-(\d{4,})$`)

// Number is the document identifier DEV-YYYY-NNNN.
// The zero value means "not assigned".
type Number struct {
	year     int
	sequence int
}

// NewNumber creates a number for the given year partition and sequence
func NewNumber(year, sequence int) (Number, error) {
	if year < MinYear || year > MaxYear {
		return Number{}, fmt.Errorf("year %d is outside the 4-digit range", year)
	}
	if sequence < 1 {
		return Number{}, fmt.Errorf("sequence must be positive, got %d", sequence)
	}
	if sequence > MaxSequence {
		return Number{}, fmt.Errorf("sequence %d exceeds %d", sequence, MaxSequence)
	}
	return Number{year: year, sequence: sequence}, nil
}

// FallbackNumber synthesizes the number of a record that was stored without
// one, from its creation year and database id. The result is deterministic
// so repeated renders of the same record print the same identifier.
func FallbackNumber(year int, id int64) Number {
	return Number{year: year, sequence: int(id)}
}

// ParseNumber parses the DEV-YYYY-NNNN form. Legacy fallback numbers with
// more than four sequence digits are accepted.
func ParseNumber(s string) (Number, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Number{}, fmt.Errorf("invalid quote number %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	seq, err := strconv.Atoi(m[2])
	if err != nil || seq < 1 {
		return Number{}, fmt.Errorf("invalid quote number %q", s)
	}
	return Number{year: year, sequence: seq}, nil
}

// PartitionPrefix returns the common prefix of every number of a year, e.g. "DEV-2025-"
func PartitionPrefix(year int) string {
	return fmt.Sprintf("%s-%04d-", NumberPrefix, year)
}

// Year returns the year partition
func (n Number) Year() int {
	return n.year
}

// Sequence returns the sequence within the year
func (n Number) Sequence() int {
	return n.sequence
}

// IsZero reports whether the number is unassigned
func (n Number) IsZero() bool {
	return n.year == 0 && n.sequence == 0
}

// String formats the number; the zero value formats as ""
func (n Number) String() string {
	if n.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s%04d", PartitionPrefix(n.year), n.sequence)
}

// Next returns the following number in the same year
func (n Number) Next() (Number, error) {
	return NewNumber(n.year, n.sequence+1)
}
