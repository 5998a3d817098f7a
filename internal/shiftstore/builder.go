// Public domain.

package shiftstore

import (
	"log/slog"
	"math"
)

// builder assembles the sequence implied by one pivot placement.
type builder struct {
	pattern  ShiftPattern
	otherTol float64
	log      *slog.Logger
}

// build walks slots 0..N in order.  The pivot fills slot pivotIndex; every
// other slot takes the pool member matching its expected coordinate, or
// stays a placeholder.  A pool member fills at most one slot of the
// sequence.  pool must not contain the pivot.
//
// build has no side effects on pool, so trials for different pivot
// indexes may run concurrently.
func (b *builder) build(pivot *Detection, pivotIndex int, pool []*Detection) *Sequence {
	exp := ExpectedPositions(pivot, pivotIndex, b.pattern)
	s := &Sequence{
		PivotID:    pivot.ID,
		PivotIndex: pivotIndex,
		Search:     pivot.Search,
		Slots:      make([]Slot, len(exp)),
	}
	consumed := make([]bool, len(pool))
	var cand []int
	for i, e := range exp {
		s.Slots[i].Expected = e
		if i == pivotIndex {
			s.Slots[i].Detection = pivot
			continue
		}
		cand = cand[:0]
		for j, d := range pool {
			if !consumed[j] && within(d.Other, e, b.otherTol) {
				cand = append(cand, j)
			}
		}
		if len(cand) == 0 {
			continue
		}
		c := cand[0]
		if len(cand) > 1 {
			c = b.resolve(pivot, i, e, pool, cand)
		}
		consumed[c] = true
		s.Slots[i].Detection = pool[c]
	}
	return s
}

// resolve picks one of several candidates for a slot.
//
// The candidate with brightness closest to the pivot's wins.  Between equal
// brightness differences the one nearest the expected position wins, and
// after that the first in pool order.
func (b *builder) resolve(pivot *Detection, slot int, expected float64, pool []*Detection, cand []int) int {
	best := cand[0]
	bestDB := math.Abs(pool[best].Brightness - pivot.Brightness)
	bestOff := offset(pool[best], pivot.Search, expected)
	for _, j := range cand[1:] {
		d := pool[j]
		db := math.Abs(d.Brightness - pivot.Brightness)
		off := offset(d, pivot.Search, expected)
		if db < bestDB || db == bestDB && off < bestOff {
			best, bestDB, bestOff = j, db, off
		}
	}
	ties := 0
	for _, j := range cand {
		if math.Abs(pool[j].Brightness-pivot.Brightness) == bestDB {
			ties++
		}
	}
	b.log.Debug("ambiguous slot",
		slog.Int("pivot", pivot.ID),
		slog.Int("slot", slot),
		slog.Int("candidates", len(cand)),
		slog.Int("chosen", pool[best].ID),
		slog.Bool("brightnessTie", ties > 1))
	return best
}
