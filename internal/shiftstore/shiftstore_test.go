// Public domain.

package shiftstore_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rts2/shiftstore/internal/shiftstore"
)

// star returns the detections of one ideal trail starting at other0.
func star(id0 int, search, other0, mag float64, p shiftstore.ShiftPattern) []shiftstore.Detection {
	d := make([]shiftstore.Detection, p.SequenceLength())
	o := other0
	for i := range d {
		if i > 0 {
			o += p[i-1]
		}
		d[i] = shiftstore.Detection{
			ID:         id0 + i,
			Search:     search,
			Other:      o,
			Brightness: mag + .1*float64(i),
			Shape:      shiftstore.Shape{FWHM: 3 + float64(i)},
		}
	}
	return d
}

func memberIDs(s *shiftstore.Sequence) []int {
	ids := make([]int, len(s.Slots))
	for i, sl := range s.Slots {
		if sl.Placeholder() {
			ids[i] = -1
		} else {
			ids[i] = sl.Detection.ID
		}
	}
	return ids
}

func ExampleRun() {
	p := shiftstore.ShiftPattern{50, 50}
	dets := append(star(1, 100, 200, 10, p), star(4, 400, 120, 12, p)...)
	dets = append(dets, shiftstore.Detection{ID: 7, Search: 400, Other: 500, Brightness: 15})
	r, err := shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, s := range r.Sequences {
		fmt.Println(s.PivotIndex, memberIDs(s))
	}
	fmt.Println("found", r.Found(), "rejected", r.Rejected)
	// Output:
	// 0 [1 2 3]
	// 0 [4 5 6]
	// found 2 rejected 1
}

func TestExactMatch(t *testing.T) {
	p := shiftstore.ShiftPattern{50, 50}
	r, err := shiftstore.Run(star(1, 100, 200, 10, p), p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	s := r.Sequences[0]
	assert.Equal(t, 3, s.Filled())
	assert.Equal(t, []int{1, 2, 3}, memberIDs(s))
	assert.Equal(t, 1, s.Pivot().ID)
}

func TestToleranceEdge(t *testing.T) {
	const eps = 1e-6
	p := shiftstore.ShiftPattern{50, 50}
	dets := star(1, 100, 200, 10, p)

	dets[2].Other = 300 + 5 - eps
	r, err := shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	assert.Equal(t, []int{1, 2, 3}, memberIDs(r.Sequences[0]))

	dets[2].Other = 300 + 5 + eps
	r, err = shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, r.Found(), "strict run must reject a trail with a missing member")

	cfg := shiftstore.DefaultConfig()
	cfg.PartialLen = 2
	r, err = shiftstore.Run(dets, p, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	s := r.Sequences[0]
	assert.Equal(t, []int{1, 2, -1}, memberIDs(s))
	assert.Equal(t, 300., s.Slots[2].Expected)
}

func TestSearchTolerance(t *testing.T) {
	p := shiftstore.ShiftPattern{50}
	dets := star(1, 100, 200, 10, p)
	dets[1].Search = 105
	r, err := shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, r.Found())

	dets[1].Search = 104.9
	r, err = shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Found())
}

func TestTieBreakByBrightness(t *testing.T) {
	p := shiftstore.ShiftPattern{50}
	dets := []shiftstore.Detection{
		{ID: 1, Search: 100, Other: 200, Brightness: 4},
		{ID: 2, Search: 100, Other: 247, Brightness: 4.6},
		{ID: 3, Search: 100, Other: 253, Brightness: 4.1},
	}
	r, err := shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	assert.Equal(t, []int{1, 3}, memberIDs(r.Sequences[0]))
	assert.Equal(t, 1, r.Rejected, "left over candidate is examined as pivot")
}

func TestRejectedPivotStaysAvailable(t *testing.T) {
	p := shiftstore.ShiftPattern{50, 50}
	dets := []shiftstore.Detection{
		// brightest, but 3 is 8 px away across the trail, so its pool
		// holds only 2
		{ID: 1, Search: 104, Other: 150, Brightness: 10},
		{ID: 2, Search: 100, Other: 100, Brightness: 11},
		{ID: 3, Search: 96, Other: 200, Brightness: 12},
	}
	r, err := shiftstore.Run(dets, p, shiftstore.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	s := r.Sequences[0]
	assert.Equal(t, 2, s.PivotID)
	assert.Equal(t, []int{2, 1, 3}, memberIDs(s))
	assert.Equal(t, 1, r.Rejected)
	assert.Equal(t, 3, r.Used)
}

func TestPartialAcceptance(t *testing.T) {
	p := shiftstore.ShiftPattern{50, 50, 50}
	cfg := shiftstore.DefaultConfig()
	cfg.PartialLen = 2

	two := []shiftstore.Detection{
		{ID: 1, Search: 10, Other: 200, Brightness: 9},
		{ID: 2, Search: 10, Other: 250, Brightness: 9.5},
	}
	r, err := shiftstore.Run(two, p, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	s := r.Sequences[0]
	assert.Len(t, s.Slots, 4)
	assert.Equal(t, 2, s.Filled())
	assert.Equal(t, 0, s.PivotIndex, "ties go to the smallest pivot index")

	r, err = shiftstore.Run(two[:1], p, cfg)
	require.NoError(t, err)
	assert.Zero(t, r.Found())
	assert.Equal(t, 1, r.Rejected)
}

func TestPartialPrefersMostFilled(t *testing.T) {
	p := shiftstore.ShiftPattern{50, 50, 50}
	cfg := shiftstore.DefaultConfig()
	cfg.PartialLen = 2
	// pivot is the brightest and sits in slot 2 of its trail, slot 1
	// is missing
	dets := []shiftstore.Detection{
		{ID: 1, Search: 10, Other: 300, Brightness: 8},
		{ID: 2, Search: 10, Other: 200, Brightness: 9},
		{ID: 3, Search: 10, Other: 350, Brightness: 9},
	}
	r, err := shiftstore.Run(dets, p, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	s := r.Sequences[0]
	assert.Equal(t, 2, s.PivotIndex)
	assert.Equal(t, []int{2, -1, 1, 3}, memberIDs(s))
}

func TestDegeneratePattern(t *testing.T) {
	dets := []shiftstore.Detection{
		{ID: 1, Brightness: 12},
		{ID: 2, Brightness: 10},
		{ID: 3, Brightness: 11},
	}
	cfg := shiftstore.DefaultConfig()
	cfg.MaxSequences = 2
	r, err := shiftstore.Run(dets, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, r.Found())
	assert.Equal(t, []int{2}, memberIDs(r.Sequences[0]))
	assert.Equal(t, []int{3}, memberIDs(r.Sequences[1]))
	assert.False(t, r.Insufficient(2))
	assert.True(t, r.Insufficient(3))
}

func TestFluxOrdering(t *testing.T) {
	dets := []shiftstore.Detection{
		{ID: 1, Brightness: 100},
		{ID: 2, Brightness: 900},
	}
	cfg := shiftstore.DefaultConfig()
	cfg.Flux = true
	cfg.MaxSequences = 1
	r, err := shiftstore.Run(dets, shiftstore.ShiftPattern{}, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, r.Found())
	assert.Equal(t, 2, r.Sequences[0].PivotID)
}

// field is a crowded frame: overlapping trails on shared rows, plus
// detections matching nothing.
func field() (shiftstore.ShiftPattern, []shiftstore.Detection) {
	p := shiftstore.ShiftPattern{30, 30, -45, 30}
	var d []shiftstore.Detection
	id := 1
	for row := 0; row < 6; row++ {
		for col := 0; col < 4; col++ {
			s := star(id, float64(100+row*7)+float64(col)*.5,
				float64(100+col*37), 9+float64(row+col)*.3, p)
			if (row+col)%3 == 0 {
				s = append(s[:2], s[3:]...)
			}
			d = append(d, s...)
			id += 10
		}
	}
	for i := 0; i < 20; i++ {
		d = append(d, shiftstore.Detection{
			ID:         1000 + i,
			Search:     float64(95 + i*2),
			Other:      float64(90 + i*13),
			Brightness: 14 + float64(i%5)*.2,
		})
	}
	return p, d
}

func checkInvariants(t *testing.T, p shiftstore.ShiftPattern, cfg shiftstore.Config, r *shiftstore.Result) {
	t.Helper()
	seen := map[int]bool{}
	for _, s := range r.Sequences {
		require.Len(t, s.Slots, p.SequenceLength())
		for _, sl := range s.Slots {
			if sl.Placeholder() {
				continue
			}
			d := sl.Detection
			assert.False(t, seen[d.ID], "detection %d in two sequences", d.ID)
			seen[d.ID] = true
			assert.Less(t, math.Abs(d.Other-sl.Expected), cfg.OtherTolerance)
			assert.Less(t, math.Abs(d.Search-s.Search), cfg.SearchTolerance)
		}
	}
	assert.Equal(t, len(seen), r.Used)
}

func TestInvariants(t *testing.T) {
	p, dets := field()
	for _, partial := range []int{0, 3, 5} {
		cfg := shiftstore.DefaultConfig()
		cfg.PartialLen = partial
		cfg.MaxSequences = 0
		r, err := shiftstore.Run(dets, p, cfg)
		require.NoError(t, err)
		assert.NotZero(t, r.Found(), "partial %d", partial)
		checkInvariants(t, p, cfg, r)
		if partial == 0 {
			for _, s := range r.Sequences {
				assert.Equal(t, p.SequenceLength(), s.Filled())
			}
		}
	}
}

func TestIdempotent(t *testing.T) {
	p, dets := field()
	cfg := shiftstore.DefaultConfig()
	cfg.PartialLen = 3
	c, err := shiftstore.New(dets, p, cfg)
	require.NoError(t, err)
	first := c.Run()
	if diff := cmp.Diff(first, c.Run()); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
	again, err := shiftstore.Run(dets, p, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("new controller differs (-first +again):\n%s", diff)
	}
}

func TestParallelTrials(t *testing.T) {
	p, dets := field()
	for _, partial := range []int{0, 2, 4} {
		cfg := shiftstore.DefaultConfig()
		cfg.PartialLen = partial
		cfg.MaxSequences = 0
		seq, err := shiftstore.Run(dets, p, cfg)
		require.NoError(t, err)
		cfg.ParallelTrials = true
		par, err := shiftstore.Run(dets, p, cfg)
		require.NoError(t, err)
		if diff := cmp.Diff(seq, par); diff != "" {
			t.Fatalf("partial %d: parallel differs (-seq +par):\n%s", partial, diff)
		}
	}
}

func TestMaxSequences(t *testing.T) {
	p, dets := field()
	cfg := shiftstore.DefaultConfig()
	cfg.MaxSequences = 3
	r, err := shiftstore.Run(dets, p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Found())
	assert.Equal(t, 3, r.Wanted)
}

func TestValidation(t *testing.T) {
	p := shiftstore.ShiftPattern{50, 50}
	good := star(1, 0, 0, 10, p)
	cases := []struct {
		name string
		dets []shiftstore.Detection
		p    shiftstore.ShiftPattern
		cfg  func(*shiftstore.Config)
		err  error
	}{
		{"nan offset", good, shiftstore.ShiftPattern{50, math.NaN()}, nil,
			shiftstore.ErrMalformedPattern},
		{"inf offset", good, shiftstore.ShiftPattern{math.Inf(-1)}, nil,
			shiftstore.ErrMalformedPattern},
		{"zero tolerance", good, p,
			func(c *shiftstore.Config) { c.OtherTolerance = 0 },
			shiftstore.ErrInvalidConfig},
		{"nan tolerance", good, p,
			func(c *shiftstore.Config) { c.SearchTolerance = math.NaN() },
			shiftstore.ErrInvalidConfig},
		{"partial too long", good, p,
			func(c *shiftstore.Config) { c.PartialLen = 4 },
			shiftstore.ErrInvalidConfig},
		{"negative max", good, p,
			func(c *shiftstore.Config) { c.MaxSequences = -1 },
			shiftstore.ErrInvalidConfig},
		{"duplicate id", append(good, good[0]), p, nil,
			shiftstore.ErrDuplicateID},
		{"nan position",
			[]shiftstore.Detection{{ID: 1, Other: math.NaN()}}, p, nil,
			shiftstore.ErrInvalidDetection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := shiftstore.DefaultConfig()
			if tc.cfg != nil {
				tc.cfg(&cfg)
			}
			_, err := shiftstore.Run(tc.dets, tc.p, cfg)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	r, err := shiftstore.Run(nil, shiftstore.ShiftPattern{50}, shiftstore.DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, r.Found())
	assert.True(t, r.Insufficient(1))
}
