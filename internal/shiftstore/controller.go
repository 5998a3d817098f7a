// Public domain.

package shiftstore

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Config holds the matching parameters of a run.
type Config struct {
	// SearchTolerance bounds the search-axis distance of any member from
	// its pivot, in pixels.
	SearchTolerance float64
	// OtherTolerance bounds the other-axis distance of a member from the
	// expected slot coordinate, in pixels.
	OtherTolerance float64
	// PartialLen, if non-zero, accepts sequences with at least PartialLen
	// filled slots.  Zero requires every slot to be filled.
	PartialLen int
	// MaxSequences stops the run once this many sequences are accepted.
	// Zero means no limit.
	MaxSequences int
	// Flux means Brightness is a flux, higher is brighter.  Otherwise it
	// is a magnitude.
	Flux bool
	// ParallelTrials evaluates the pivot index trials of a pivot
	// concurrently.  Output is the same as with sequential trials.
	ParallelTrials bool
}

// DefaultConfig returns the usual parameters: 5 pixel tolerances, strict
// matching, at most 15 sequences.
func DefaultConfig() Config {
	return Config{
		SearchTolerance: 5,
		OtherTolerance:  5,
		MaxSequences:    15,
	}
}

func (c *Config) validate(p ShiftPattern) error {
	for _, t := range []struct {
		name string
		v    float64
	}{
		{"search tolerance", c.SearchTolerance},
		{"other tolerance", c.OtherTolerance},
	} {
		if !(t.v > 0) || math.IsInf(t.v, 1) {
			return fmt.Errorf("%w: %s %v", ErrInvalidConfig, t.name, t.v)
		}
	}
	if c.PartialLen < 0 || c.PartialLen > p.SequenceLength() {
		return fmt.Errorf("%w: partial length %d outside 0..%d",
			ErrInvalidConfig, c.PartialLen, p.SequenceLength())
	}
	if c.MaxSequences < 0 {
		return fmt.Errorf("%w: max sequences %d", ErrInvalidConfig, c.MaxSequences)
	}
	return nil
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sends debug output of the run to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Result is the outcome of a run.
type Result struct {
	Sequences []*Sequence
	// Wanted is the configured maximum, zero if unlimited.
	Wanted int
	// Used and Rejected count claimed detections and pivots examined
	// without result.
	Used, Rejected int
}

// Found is the number of accepted sequences.
func (r *Result) Found() int { return len(r.Sequences) }

// Insufficient reports whether fewer than min sequences were found.
// A run that ends short is not an error; the caller decides whether the
// sequences found are enough.
func (r *Result) Insufficient(min int) bool { return len(r.Sequences) < min }

type state int

const (
	scanning state = iota
	building
	accepting
	rejecting
	done
)

// Controller runs the matching over one frame's detections.  It owns the
// UsedSet and the output of the run.
type Controller struct {
	cfg     Config
	pattern ShiftPattern
	dets    []*Detection // brightness order
	b       builder
	log     *slog.Logger
}

// New validates its arguments and returns a Controller ready to Run.
// dets is copied; the caller may reuse it.
func New(dets []Detection, p ShiftPattern, cfg Config, opts ...Option) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(p); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:     cfg,
		pattern: append(ShiftPattern{}, p...),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	seen := make(map[int]bool, len(dets))
	c.dets = make([]*Detection, len(dets))
	for i := range dets {
		d := dets[i]
		if seen[d.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = true
		for _, v := range []float64{d.Search, d.Other, d.Brightness} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: id %d has non-finite value",
					ErrInvalidDetection, d.ID)
			}
		}
		c.dets[i] = &d
	}
	slices.SortStableFunc(c.dets, c.brighter)
	c.b = builder{pattern: c.pattern, otherTol: cfg.OtherTolerance, log: c.log}
	return c, nil
}

// Run is New followed by Controller.Run.
func Run(dets []Detection, p ShiftPattern, cfg Config, opts ...Option) (*Result, error) {
	c, err := New(dets, p, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Run(), nil
}

func (c *Controller) brighter(a, b *Detection) int {
	if c.cfg.Flux {
		return cmp.Compare(b.Brightness, a.Brightness)
	}
	return cmp.Compare(a.Brightness, b.Brightness)
}

// Run matches the detections.  Pivots are taken brightest first; every
// unused detection gets one turn as pivot.  Each call starts from an empty
// UsedSet, so repeated calls return equal results.
func (c *Controller) Run() *Result {
	used := NewUsedSet()
	r := &Result{Wanted: c.cfg.MaxSequences}
	var (
		next  int // scan position in c.dets
		pivot *Detection
		seq   *Sequence
	)
	for st := scanning; st != done; {
		switch st {
		case scanning:
			st = done
			if c.cfg.MaxSequences > 0 && len(r.Sequences) >= c.cfg.MaxSequences {
				break
			}
			for ; next < len(c.dets); next++ {
				if !used.Used(c.dets[next].ID) {
					pivot = c.dets[next]
					next++
					st = building
					break
				}
			}
		case building:
			if seq = c.best(pivot, c.pool(pivot, used)); seq != nil {
				st = accepting
			} else {
				st = rejecting
			}
		case accepting:
			used.Claim(seq)
			r.Sequences = append(r.Sequences, seq)
			c.log.Debug("sequence accepted",
				slog.Int("pivot", pivot.ID),
				slog.Int("pivotIndex", seq.PivotIndex),
				slog.Int("filled", seq.Filled()))
			st = scanning
		case rejecting:
			used.Examine(pivot.ID)
			st = scanning
		}
	}
	r.Used = used.Len()
	r.Rejected = used.Rejected()
	return r
}

// pool returns the unused detections other than pivot within search
// tolerance of it.
func (c *Controller) pool(pivot *Detection, used *UsedSet) []*Detection {
	w := Window(c.dets, SearchAxis, pivot.Search, c.cfg.SearchTolerance)
	p := w[:0]
	for _, d := range w {
		if d != pivot && !used.Used(d.ID) {
			p = append(p, d)
		}
	}
	return p
}

// best tries every pivot index and returns the acceptable sequence to
// keep, or nil.
//
// In strict mode the first full sequence in pivot index order is kept.
// In partial mode the sequence with the most filled slots is kept, the
// smallest pivot index winning ties.
func (c *Controller) best(pivot *Detection, pool []*Detection) *Sequence {
	n := c.pattern.SequenceLength()
	need := n
	if c.cfg.PartialLen > 0 {
		need = c.cfg.PartialLen
	}
	if len(pool)+1 < need {
		return nil
	}
	var trials []*Sequence
	if c.cfg.ParallelTrials && n > 1 {
		trials = c.parallelTrials(pivot, pool)
	}
	var best *Sequence
	for px := 0; px < n; px++ {
		var s *Sequence
		if trials != nil {
			s = trials[px]
		} else {
			s = c.b.build(pivot, px, pool)
		}
		f := s.Filled()
		if f < need {
			continue
		}
		if c.cfg.PartialLen == 0 || f == n {
			return s
		}
		if best == nil || f > best.Filled() {
			best = s
		}
	}
	return best
}

func (c *Controller) parallelTrials(pivot *Detection, pool []*Detection) []*Sequence {
	trials := make([]*Sequence, c.pattern.SequenceLength())
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for px := range trials {
		g.Go(func() error {
			trials[px] = c.b.build(pivot, px, pool)
			return nil
		})
	}
	// build has no error path, Wait only joins the trials.
	_ = g.Wait()
	return trials
}
