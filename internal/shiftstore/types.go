// Public domain.

// Package shiftstore reconstructs star trails of a shift-store focus run.
//
// During a shift-store exposure the telescope is moved by a known sequence
// of pixel offsets between sub-exposures of a single CCD frame.  Each star
// then leaves a short trail of point images along one image axis.  Given the
// unordered detections of a frame, a Controller groups them into Sequences,
// one per star, each slot of a Sequence corresponding to one sub-exposure.
//
// The package does no I/O.  Detections come from a source extractor,
// Sequences go to a focus-curve fitter.
package shiftstore

// Axis selects one of the two detection coordinates.
type Axis int

const (
	// SearchAxis is orthogonal to the trail direction.  Members of one
	// trail share (nearly) the same search coordinate.
	SearchAxis Axis = iota
	// OtherAxis is the trail direction, the axis the shift pattern advances.
	OtherAxis
)

func (a Axis) String() string {
	switch a {
	case SearchAxis:
		return "search"
	case OtherAxis:
		return "other"
	}
	return "unknown"
}

// Shape is the star-shape payload measured by the source extractor.  It is
// carried through matching untouched.
type Shape struct {
	FWHM  float64 // full width half maximum, pixels
	A, B  float64 // profile semi-axes, pixels
	Flags int     // extractor quality flags
}

// Detection is a single point source found in the frame.
//
// Brightness is a magnitude unless the run is configured for flux.  Either
// way only differences and ordering of Brightness are used.
type Detection struct {
	ID         int
	Search     float64
	Other      float64
	Brightness float64
	Shape      Shape
}

// Coord returns the detection coordinate on axis a.
func (d *Detection) Coord(a Axis) float64 {
	if a == SearchAxis {
		return d.Search
	}
	return d.Other
}

// Slot is one position of a Sequence.  A nil Detection marks a placeholder:
// no detection was found at the expected coordinate.
type Slot struct {
	Expected  float64 // expected other-axis coordinate
	Detection *Detection
}

// Placeholder reports whether the slot has no member.
func (s Slot) Placeholder() bool { return s.Detection == nil }

// Sequence is the reconstructed trail of one star.  Slots has one element
// per sub-exposure, in shift pattern order.
type Sequence struct {
	PivotID    int
	PivotIndex int     // slot holding the pivot
	Search     float64 // search coordinate of the pivot
	Slots      []Slot
}

// Filled returns the number of slots holding a detection.
func (s *Sequence) Filled() (n int) {
	for _, sl := range s.Slots {
		if !sl.Placeholder() {
			n++
		}
	}
	return
}

// Members returns the detections of non-placeholder slots in slot order.
func (s *Sequence) Members() []*Detection {
	m := make([]*Detection, 0, len(s.Slots))
	for _, sl := range s.Slots {
		if !sl.Placeholder() {
			m = append(m, sl.Detection)
		}
	}
	return m
}

// Pivot returns the pivot detection.
func (s *Sequence) Pivot() *Detection {
	return s.Slots[s.PivotIndex].Detection
}
