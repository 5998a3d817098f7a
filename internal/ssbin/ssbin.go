// Public domain.

// Package ssbin stores shift-store runs for the focus fitting stage.
//
// A run file holds the sequences found in one or more frames together with
// the parameters they were found with.  The file is gob encoded.
package ssbin

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/rts2/shiftstore/internal/shiftstore"
)

// Ext is the conventional run file extension.
const Ext = ".ssrun"

// version identifies the file layout.
const version = "shiftstore run 1"

// ErrVersion is returned by ReadFile for a gob stream that does not start
// with the run file version string.
var ErrVersion = errors.New("ssbin: not a shiftstore run file")

// Run is the result of matching one frame.
type Run struct {
	ID        uuid.UUID
	Frame     string  // catalog or frame name
	JD        float64 // exposure epoch, zero if unknown
	Pattern   shiftstore.ShiftPattern
	Config    shiftstore.Config
	Sequences []*shiftstore.Sequence
}

// New returns a Run with a fresh ID.  A zero epoch leaves JD zero.
func New(frame string, epoch time.Time, p shiftstore.ShiftPattern,
	cfg shiftstore.Config, r *shiftstore.Result) *Run {
	run := &Run{
		ID:        uuid.New(),
		Frame:     frame,
		Pattern:   p,
		Config:    cfg,
		Sequences: r.Sequences,
	}
	if !epoch.IsZero() {
		run.JD = julian.TimeToJD(epoch)
	}
	return run
}

// Epoch returns the exposure time, the zero time if JD is zero.
func (r *Run) Epoch() time.Time {
	if r.JD == 0 {
		return time.Time{}
	}
	return julian.JDToTime(r.JD)
}

// WriteFile writes runs to file fn, replacing it.
func WriteFile(fn string, runs []*Run) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()
	enc := gob.NewEncoder(f)
	if err = enc.Encode(version); err != nil {
		return
	}
	if err = enc.Encode(len(runs)); err != nil {
		return
	}
	for _, r := range runs {
		if err = enc.Encode(r); err != nil {
			return
		}
	}
	return
}

// ReadFile reads the runs in file fn.
func ReadFile(fn string) ([]*Run, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	var v string
	if err = dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if v != version {
		return nil, fmt.Errorf("%w: %s has %q", ErrVersion, fn, v)
	}
	var n int
	if err = dec.Decode(&n); err != nil {
		return nil, err
	}
	runs := make([]*Run, n)
	for i := range runs {
		runs[i] = new(Run)
		if err = dec.Decode(runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}
