// Public domain.

// Package sscat reads source extractor catalogs into shiftstore detections.
//
// The supported format is the SExtractor ASCII_HEAD catalog: a header of
// lines
//
//	#   2 X_IMAGE    Object position along x    [pixel]
//
// numbering the columns, followed by one white space separated row per
// source.  Required columns are NUMBER, X_IMAGE, Y_IMAGE and a brightness,
// one of MAG_AUTO, MAG_BEST, MAG_ISO or, for flux catalogs, FLUX_AUTO,
// FLUX_BEST, FLUX_ISO.  FWHM_IMAGE, A_IMAGE, B_IMAGE, FLAGS, ALPHA_J2000 and
// DELTA_J2000 are used when present.
package sscat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/rts2/shiftstore/internal/shiftstore"
)

var (
	// ErrMissingColumn means the header lacks a required column.
	ErrMissingColumn = errors.New("sscat: missing column")
	// ErrSyntax is a malformed column number or data row.
	ErrSyntax = errors.New("sscat: syntax error")
)

var (
	magColumns  = []string{"MAG_AUTO", "MAG_BEST", "MAG_ISO"}
	fluxColumns = []string{"FLUX_AUTO", "FLUX_BEST", "FLUX_ISO"}
)

// Options control how catalog rows become detections.
type Options struct {
	// TrailY means the telescope was shifted along image y.  Then y is the
	// other axis and x the search axis, otherwise the reverse.
	TrailY bool
	// MaxFlags drops sources with FLAGS above it.  Negative keeps all.
	MaxFlags int
	// Flux reads a flux column as brightness instead of a magnitude.
	Flux bool
}

// Entry is one catalog source.
type Entry struct {
	Detection shiftstore.Detection
	X, Y      float64
	RA        unit.RA
	Dec       unit.Angle
	HasSky    bool
}

// Catalog is the content of one catalog file.
type Catalog struct {
	Name       string
	Brightness string // column used for brightness
	Entries    []Entry
	Dropped    int // sources rejected by flags
}

// Detections returns the detections of all entries, in catalog order.
func (c *Catalog) Detections() []shiftstore.Detection {
	d := make([]shiftstore.Detection, len(c.Entries))
	for i := range c.Entries {
		d[i] = c.Entries[i].Detection
	}
	return d
}

// Entry finds the entry of detection id.
func (c *Catalog) Entry(id int) (*Entry, bool) {
	for i := range c.Entries {
		if c.Entries[i].Detection.ID == id {
			return &c.Entries[i], true
		}
	}
	return nil, false
}

// ReadFile reads the catalog in file fn.
func ReadFile(fn string, o Options) (*Catalog, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(f, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	c.Name = fn
	return c, nil
}

// Read reads a catalog from r.
func Read(r io.Reader, o Options) (*Catalog, error) {
	col := map[string]int{}
	c := &Catalog{}
	var x columns
	s := bufio.NewScanner(r)
	for ln := 1; s.Scan(); ln++ {
		l := s.Text()
		if strings.HasPrefix(l, "#") {
			f := strings.Fields(l[1:])
			if len(f) < 2 {
				continue
			}
			n, err := strconv.Atoi(f[0])
			if err != nil {
				continue // free text comment
			}
			if n < 1 {
				return nil, fmt.Errorf("%w: line %d: bad column number %q",
					ErrSyntax, ln, f[0])
			}
			col[f[1]] = n - 1
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		if x == nil {
			var err error
			if x, err = resolve(col, o, c); err != nil {
				return nil, err
			}
		}
		e, keep, err := x.parse(strings.Fields(l), o)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, ln, err)
		}
		if !keep {
			c.Dropped++
			continue
		}
		c.Entries = append(c.Entries, e)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if x == nil {
		// header only, still check it
		if _, err := resolve(col, o, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// columns maps the fields used to 0-based column positions, -1 if absent.
type columns map[string]int

const (
	cNumber = "NUMBER"
	cX      = "X_IMAGE"
	cY      = "Y_IMAGE"
	cBright = "brightness"
	cFWHM   = "FWHM_IMAGE"
	cA      = "A_IMAGE"
	cB      = "B_IMAGE"
	cFlags  = "FLAGS"
	cRA     = "ALPHA_J2000"
	cDec    = "DELTA_J2000"
)

func resolve(col map[string]int, o Options, c *Catalog) (columns, error) {
	x := columns{}
	for _, n := range []string{cNumber, cX, cY} {
		i, ok := col[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
		x[n] = i
	}
	bc := magColumns
	if o.Flux {
		bc = fluxColumns
	}
	x[cBright] = -1
	for _, n := range bc {
		if i, ok := col[n]; ok {
			x[cBright] = i
			c.Brightness = n
			break
		}
	}
	if x[cBright] < 0 {
		return nil, fmt.Errorf("%w: one of %s",
			ErrMissingColumn, strings.Join(bc, ", "))
	}
	for _, n := range []string{cFWHM, cA, cB, cFlags, cRA, cDec} {
		if i, ok := col[n]; ok {
			x[n] = i
		} else {
			x[n] = -1
		}
	}
	return x, nil
}

func (x columns) parse(f []string, o Options) (e Entry, keep bool, err error) {
	num := func(name string) float64 {
		i := x[name]
		if err != nil || i < 0 {
			return 0
		}
		if i >= len(f) {
			err = fmt.Errorf("no column %d (%s)", i+1, name)
			return 0
		}
		var v float64
		if v, err = strconv.ParseFloat(f[i], 64); err != nil {
			err = fmt.Errorf("%s: %v", name, err)
		}
		return v
	}
	n := num(cNumber)
	e.X = num(cX)
	e.Y = num(cY)
	d := &e.Detection
	d.Brightness = num(cBright)
	d.Shape.FWHM = num(cFWHM)
	d.Shape.A = num(cA)
	d.Shape.B = num(cB)
	flags := num(cFlags)
	ra := num(cRA)
	dec := num(cDec)
	if err != nil {
		return
	}
	d.ID = int(n)
	d.Shape.Flags = int(flags)
	if o.TrailY {
		d.Search, d.Other = e.X, e.Y
	} else {
		d.Search, d.Other = e.Y, e.X
	}
	if x[cRA] >= 0 && x[cDec] >= 0 {
		e.RA = unit.RAFromDeg(ra)
		e.Dec = unit.AngleFromDeg(dec)
		e.HasSky = true
	}
	keep = o.MaxFlags < 0 || d.Shape.Flags <= o.MaxFlags
	return
}
