// Public domain.

package shiftstore

// UsedSet records which detections have been claimed by accepted
// sequences.  It only grows during a run.  It also remembers pivots that
// were examined without yielding a sequence; those are not used and remain
// candidates for other pivots.
type UsedSet struct {
	used     map[int]bool
	examined map[int]bool
}

// NewUsedSet returns an empty UsedSet.
func NewUsedSet() *UsedSet {
	return &UsedSet{
		used:     make(map[int]bool),
		examined: make(map[int]bool),
	}
}

// Used reports whether detection id belongs to an accepted sequence.
func (u *UsedSet) Used(id int) bool { return u.used[id] }

// Claim marks every member of s as used.  Claiming a detection twice
// would break the one-sequence-per-detection guarantee and panics.
func (u *UsedSet) Claim(s *Sequence) {
	for _, d := range s.Members() {
		if u.used[d.ID] {
			panic("shiftstore: detection claimed twice")
		}
		u.used[d.ID] = true
	}
}

// Examine marks id as a pivot that produced no sequence.
func (u *UsedSet) Examine(id int) { u.examined[id] = true }

// Examined reports whether id was rejected as a pivot.
func (u *UsedSet) Examined(id int) bool { return u.examined[id] }

// Len is the number of used detections.
func (u *UsedSet) Len() int { return len(u.used) }

// Rejected is the number of pivots examined without result.
func (u *UsedSet) Rejected() int { return len(u.examined) }
