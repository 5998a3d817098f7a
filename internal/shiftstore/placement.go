// Public domain.

package shiftstore

// ExpectedPositions computes the other-axis coordinate expected at every
// slot of a sequence when pivot is placed at slot pivotIndex.
//
// Slots before the pivot lie at pivot.Other minus the offsets between them
// and the pivot, slots after it at pivot.Other plus the offsets.  The
// result has p.SequenceLength() elements.  pivotIndex must be in
// 0..len(p).
func ExpectedPositions(pivot *Detection, pivotIndex int, p ShiftPattern) []float64 {
	if pivotIndex < 0 || pivotIndex > len(p) {
		panic("shiftstore: pivot index out of range")
	}
	e := make([]float64, p.SequenceLength())
	e[pivotIndex] = pivot.Other
	for i := pivotIndex - 1; i >= 0; i-- {
		e[i] = e[i+1] - p[i]
	}
	for i := pivotIndex + 1; i < len(e); i++ {
		e[i] = e[i-1] + p[i-1]
	}
	return e
}
