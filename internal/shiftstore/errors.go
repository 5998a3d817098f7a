// Public domain.

package shiftstore

import "errors"

// Errors returned before any matching starts.  Per-slot and per-pivot
// outcomes are never errors.
var (
	ErrMalformedPattern = errors.New("shiftstore: malformed shift pattern")
	ErrEmptyPattern     = errors.New("shiftstore: empty shift pattern")
	ErrInvalidConfig    = errors.New("shiftstore: invalid configuration")
	ErrInvalidDetection = errors.New("shiftstore: invalid detection")
	ErrDuplicateID      = errors.New("shiftstore: duplicate detection id")
)
