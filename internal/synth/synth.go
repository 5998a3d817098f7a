// Public domain.

// Package synth generates synthetic shift-store fields.
//
// A field is a list of detections as a source extractor would report them
// for a shift-store exposure: one trail per star following the shift
// pattern, with optional position jitter, missing members and spurious
// detections.  Fields are fully determined by their Params, seed included.
package synth

import (
	"fmt"
	"io"
	"math"

	xrand "golang.org/x/exp/rand"

	"github.com/rts2/shiftstore/internal/shiftstore"
)

// Params describe a field.
type Params struct {
	Stars  int     // number of trails
	Noise  int     // spurious detections
	Search float64 // field extent across the trail, pixels
	Other  float64 // field extent along the trail, pixels
	Jitter float64 // standard deviation of position error, pixels
	Miss   float64 // probability that a trail member is not detected
	// BestSlot is the slot closest to focus.  FWHM grows quadratically
	// away from it.
	BestSlot int
	Seed     uint64
}

// DefaultParams is a 2k by 2k frame with 30 stars and some noise.
func DefaultParams() Params {
	return Params{
		Stars:  30,
		Noise:  15,
		Search: 2048,
		Other:  2048,
		Jitter: .5,
		Miss:   .05,
		Seed:   3,
	}
}

// Field is a generated field.
type Field struct {
	Pattern    shiftstore.ShiftPattern
	Detections []shiftstore.Detection // shuffled
	// Trails lists detection IDs per star in slot order, -1 for a
	// member not detected.
	Trails [][]int
}

// Generate creates a field for pattern p.
func Generate(p shiftstore.ShiftPattern, prm Params) *Field {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(prm.Seed)

	// trail extent relative to slot 0
	lo, hi := 0., 0.
	for i := 1; i < p.SequenceLength(); i++ {
		o := p.Span(0, i)
		lo = math.Min(lo, o)
		hi = math.Max(hi, o)
	}
	const margin = 10
	f := &Field{Pattern: p}
	id := 1
	for s := 0; s < prm.Stars; s++ {
		search := margin + rnd.Float64()*(prm.Search-2*margin)
		other0 := margin - lo + rnd.Float64()*math.Max(0, prm.Other-2*margin-(hi-lo))
		mag := 8 + 6*rnd.Float64()
		trail := make([]int, p.SequenceLength())
		for i := range trail {
			if rnd.Float64() < prm.Miss {
				trail[i] = -1
				continue
			}
			df := float64(i - prm.BestSlot)
			f.Detections = append(f.Detections, shiftstore.Detection{
				ID:         id,
				Search:     search + rnd.NormFloat64()*prm.Jitter,
				Other:      other0 + p.Span(0, i) + rnd.NormFloat64()*prm.Jitter,
				Brightness: mag + .05*rnd.NormFloat64() + .02*df*df,
				Shape: shiftstore.Shape{
					FWHM: 2.5 + .4*df*df + .1*rnd.Float64(),
					A:    1.5 + .2*df*df,
					B:    1.4 + .2*df*df,
				},
			})
			trail[i] = id
			id++
		}
		f.Trails = append(f.Trails, trail)
	}
	for n := 0; n < prm.Noise; n++ {
		f.Detections = append(f.Detections, shiftstore.Detection{
			ID:         id,
			Search:     rnd.Float64() * prm.Search,
			Other:      rnd.Float64() * prm.Other,
			Brightness: 14 + 3*rnd.Float64(),
			Shape:      shiftstore.Shape{FWHM: 1 + 4*rnd.Float64(), A: 1, B: 1},
		})
		id++
	}
	for i := len(f.Detections) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		f.Detections[i], f.Detections[j] = f.Detections[j], f.Detections[i]
	}
	return f
}

// WriteCatalog writes the field as a SExtractor ASCII_HEAD catalog.  With
// trailY the trail runs along image y.
func (f *Field) WriteCatalog(w io.Writer, trailY bool) error {
	if _, err := io.WriteString(w, `#   1 NUMBER                 Running object number
#   2 X_IMAGE                Object position along x                                    [pixel]
#   3 Y_IMAGE                Object position along y                                    [pixel]
#   4 MAG_AUTO               Kron-like elliptical aperture magnitude                    [mag]
#   5 FWHM_IMAGE             FWHM assuming a gaussian core                              [pixel]
#   6 A_IMAGE                Profile RMS along major axis                               [pixel]
#   7 B_IMAGE                Profile RMS along minor axis                               [pixel]
#   8 FLAGS                  Extraction flags
`); err != nil {
		return err
	}
	for _, d := range f.Detections {
		x, y := d.Other, d.Search
		if trailY {
			x, y = y, x
		}
		if _, err := fmt.Fprintf(w, "%10d %10.3f %10.3f %8.4f %8.3f %8.3f %8.3f %3d\n",
			d.ID, x, y, d.Brightness, d.Shape.FWHM, d.Shape.A, d.Shape.B,
			d.Shape.Flags); err != nil {
			return err
		}
	}
	return nil
}
