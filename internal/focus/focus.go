// Public domain.

// Package focus turns shift-store sequences into focus curve samples and
// fits a parabola to them.
package focus

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rts2/shiftstore/internal/shiftstore"
)

var (
	ErrPositions     = errors.New("focus: focuser positions do not match sequence length")
	ErrTooFewSamples = errors.New("focus: fewer than 3 samples")
	ErrNotConvex     = errors.New("focus: fitted curve has no minimum")
)

// Sample summarizes the star shapes measured in one slot of all sequences,
// that is at one focuser position.
type Sample struct {
	Slot     int
	Position float64 // focuser position
	N        int     // members contributing
	Median   float64 // FWHM, pixels; lower median for even N
	Mean     float64
	StdDev   float64 // zero for N < 2
}

// Samples builds one Sample per slot index from seqs.  Placeholders and
// members without a positive FWHM do not contribute; slots with no
// contribution are left out.  positions gives the focuser position of each
// slot and must match the sequence length.
func Samples(seqs []*shiftstore.Sequence, positions []float64) ([]Sample, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	n := len(seqs[0].Slots)
	if len(positions) != n {
		return nil, fmt.Errorf("%w: %d positions, %d slots",
			ErrPositions, len(positions), n)
	}
	var r []Sample
	fwhm := make([]float64, 0, len(seqs))
	for i := 0; i < n; i++ {
		fwhm = fwhm[:0]
		for _, s := range seqs {
			if len(s.Slots) != n {
				return nil, ErrPositions
			}
			if d := s.Slots[i].Detection; d != nil && d.Shape.FWHM > 0 {
				fwhm = append(fwhm, d.Shape.FWHM)
			}
		}
		if len(fwhm) == 0 {
			continue
		}
		sort.Float64s(fwhm)
		smp := Sample{
			Slot:     i,
			Position: positions[i],
			N:        len(fwhm),
			Median:   stat.Quantile(.5, stat.Empirical, fwhm, nil),
			Mean:     stat.Mean(fwhm, nil),
		}
		if len(fwhm) > 1 {
			smp.StdDev = stat.StdDev(fwhm, nil)
		}
		r = append(r, smp)
	}
	return r, nil
}

// Fit is a parabola fitted to median FWHM against focuser position.
type Fit struct {
	Optimum float64 // focuser position of minimum FWHM
	MinFWHM float64 // fitted FWHM at Optimum, pixels
	RMS     float64 // rms of residuals, pixels
	// coefficients of fwhm = A*t*t + B*t + C, t = position - Center
	A, B, C, Center float64
}

// FWHM evaluates the fitted curve at focuser position p.
func (f *Fit) FWHM(p float64) float64 {
	t := p - f.Center
	return (f.A*t+f.B)*t + f.C
}

// FitParabola least squares fits the sample medians.  Positions are
// centered on their mean before fitting.
func FitParabola(samples []Sample) (*Fit, error) {
	n := len(samples)
	if n < 3 {
		return nil, ErrTooFewSamples
	}
	f := &Fit{}
	for _, s := range samples {
		f.Center += s.Position
	}
	f.Center /= float64(n)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, s := range samples {
		t := s.Position - f.Center
		a.SetRow(i, []float64{t * t, t, 1})
		b.SetVec(i, s.Median)
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("focus: %w", err)
	}
	f.A, f.B, f.C = x.AtVec(0), x.AtVec(1), x.AtVec(2)
	if !(f.A > 0) {
		return nil, ErrNotConvex
	}
	t := -f.B / (2 * f.A)
	f.Optimum = f.Center + t
	f.MinFWHM = f.FWHM(f.Optimum)
	var ss float64
	for _, s := range samples {
		r := s.Median - f.FWHM(s.Position)
		ss += r * r
	}
	f.RMS = math.Sqrt(ss / float64(n))
	return f, nil
}

// Arcsec converts a FWHM in pixels to an angle for a plate scale in arc
// seconds per pixel.
func Arcsec(px, scale float64) unit.Angle {
	return unit.AngleFromSec(px * scale)
}
