// Public domain.

package shiftstore

import "math"

// within reports whether a is strictly closer than tol to b.
func within(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// Distance is the euclidean distance between two points given in
// (search, other) coordinates.
func Distance(s1, o1, s2, o2 float64) float64 {
	return math.Hypot(s1-s2, o1-o2)
}

// offset is the distance of d from the point a slot expects it at.
func offset(d *Detection, search, expected float64) float64 {
	return Distance(d.Search, d.Other, search, expected)
}
