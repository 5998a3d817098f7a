// Public domain.

package shiftstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ShiftPattern holds the signed pixel offsets applied between consecutive
// sub-exposures.  A pattern of N offsets describes N+1 sub-exposures.
type ShiftPattern []float64

// SequenceLength is the number of slots of a Sequence, len(p)+1.
func (p ShiftPattern) SequenceLength() int { return len(p) + 1 }

// Span is the sum of offsets from slot i up to, not including, slot j.
// It is negative when j < i.
func (p ShiftPattern) Span(i, j int) (s float64) {
	if j < i {
		return -p.Span(j, i)
	}
	for _, o := range p[i:j] {
		s += o
	}
	return
}

// Validate checks that every offset is finite.  An empty pattern is valid,
// it makes every detection its own single slot sequence.
func (p ShiftPattern) Validate() error {
	for i, o := range p {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			return fmt.Errorf("%w: offset %d is %v", ErrMalformedPattern, i, o)
		}
	}
	return nil
}

// ValidateRun is Validate for callers expecting a real focus run, where a
// pattern without offsets is an error.
func (p ShiftPattern) ValidateRun() error {
	if len(p) == 0 {
		return ErrEmptyPattern
	}
	return p.Validate()
}

func (p ShiftPattern) String() string {
	s := make([]string, len(p))
	for i, o := range p {
		s[i] = strconv.FormatFloat(o, 'g', -1, 64)
	}
	return strings.Join(s, ",")
}

// ParsePattern parses offsets separated by commas and/or white space,
// as in "50,50,-100" or "50 50 -100".
func ParsePattern(s string) (ShiftPattern, error) {
	f := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	p := make(ShiftPattern, len(f))
	for i, fs := range f {
		o, err := strconv.ParseFloat(fs, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPattern, err)
		}
		p[i] = o
	}
	return p, p.Validate()
}
