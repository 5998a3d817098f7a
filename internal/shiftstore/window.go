// Public domain.

package shiftstore

import (
	"cmp"
	"slices"
)

// Window returns the detections whose coordinate on axis is strictly within
// tol of center, ordered by ascending other-axis coordinate.  Detections
// with equal other coordinates keep their input order.  An empty result is
// returned as nil.
func Window(dets []*Detection, axis Axis, center, tol float64) []*Detection {
	var w []*Detection
	for _, d := range dets {
		if within(d.Coord(axis), center, tol) {
			w = append(w, d)
		}
	}
	slices.SortStableFunc(w, func(a, b *Detection) int {
		return cmp.Compare(a.Other, b.Other)
	})
	return w
}
