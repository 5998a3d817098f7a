// Public domain.

package ssprog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	sexa "github.com/soniakeys/sexagesimal"

	"github.com/rts2/shiftstore/internal/config"
	"github.com/rts2/shiftstore/internal/focus"
	"github.com/rts2/shiftstore/internal/shiftstore"
	"github.com/rts2/shiftstore/internal/ssbin"
	"github.com/rts2/shiftstore/internal/sscat"
	"github.com/rts2/shiftstore/internal/synth"
)

// settings are shared read-only by all workers.
type settings struct {
	cfg     *config.Config
	pattern shiftstore.ShiftPattern
	trailY  bool
	log     *slog.Logger
	epoch   time.Time
}

type result struct {
	text string
	run  *ssbin.Run
	err  error
}

// process reads one catalog, runs sequence detection on it and formats the
// report.
func (s *settings) process(fn string) *result {
	log := s.log.With(slog.String("catalog", fn))
	c, err := sscat.ReadFile(fn, sscat.Options{
		TrailY:   s.trailY,
		MaxFlags: s.cfg.MaxFlags,
		Flux:     s.cfg.Flux,
	})
	if err != nil {
		return &result{err: err}
	}
	m := s.cfg.Matching()
	r, err := shiftstore.Run(c.Detections(), s.pattern, m,
		shiftstore.WithLogger(log))
	if err != nil {
		return &result{err: fmt.Errorf("%s: %w", fn, err)}
	}
	log.Info("run complete",
		slog.Int("detections", len(c.Entries)),
		slog.Int("sequences", r.Found()),
		slog.Int("rejected", r.Rejected))

	var b strings.Builder
	s.report(&b, c, r, log)
	return &result{
		text: b.String(),
		run:  ssbin.New(fn, s.epoch, s.pattern, m, r),
	}
}

func (s *settings) report(b *strings.Builder, c *sscat.Catalog,
	r *shiftstore.Result, log *slog.Logger) {
	fmt.Fprintf(b, "%s: %d detections", c.Name, len(c.Entries))
	if c.Dropped > 0 {
		fmt.Fprintf(b, " (%d dropped)", c.Dropped)
	}
	fmt.Fprintf(b, ", %d sequences, %d pivots rejected\n",
		r.Found(), r.Rejected)
	for i, q := range r.Sequences {
		p := q.Pivot()
		fmt.Fprintf(b, "%4d %2d %8.2f %8.2f %7.3f ",
			i+1, q.PivotIndex, q.Search, p.Other, p.Brightness)
		for _, sl := range q.Slots {
			if sl.Placeholder() {
				b.WriteString("      -")
			} else {
				fmt.Fprintf(b, " %6d", sl.Detection.ID)
			}
		}
		if e, ok := c.Entry(q.PivotID); ok && e.HasSky {
			fmt.Fprintf(b, "  %.2d %+.1d",
				sexa.FmtRA(e.RA), sexa.FmtAngle(e.Dec))
		}
		b.WriteByte('\n')
	}
	if min := s.cfg.MinSequences; r.Insufficient(min) {
		log.Warn("too few sequences",
			slog.Int("found", r.Found()), slog.Int("min", min))
		fmt.Fprintf(b, "warning: %d sequences found, %d wanted\n",
			r.Found(), min)
	}
	if len(s.cfg.FocusPositions) > 0 {
		s.reportFocus(b, r, log)
	}
}

func (s *settings) reportFocus(b *strings.Builder, r *shiftstore.Result,
	log *slog.Logger) {
	smp, err := focus.Samples(r.Sequences, s.cfg.FocusPositions)
	if err != nil {
		log.Error("focus samples", slog.Any("err", err))
		return
	}
	scale := s.cfg.PlateScale
	for _, sm := range smp {
		fmt.Fprintf(b, "focus %10.2f %4d %7.3f %7.3f %7.3f",
			sm.Position, sm.N, sm.Median, sm.Mean, sm.StdDev)
		if scale > 0 {
			fmt.Fprintf(b, " %6.2f\"", focus.Arcsec(sm.Median, scale).Sec())
		}
		b.WriteByte('\n')
	}
	f, err := focus.FitParabola(smp)
	switch {
	case errors.Is(err, focus.ErrTooFewSamples), errors.Is(err, focus.ErrNotConvex):
		log.Warn("no focus fit", slog.Any("err", err))
		fmt.Fprintf(b, "focus: no fit, %v\n", err)
		return
	case err != nil:
		log.Error("focus fit", slog.Any("err", err))
		return
	}
	fmt.Fprintf(b, "focus optimum %.2f fwhm %.3f rms %.3f",
		f.Optimum, f.MinFWHM, f.RMS)
	if scale > 0 {
		fmt.Fprintf(b, " (%.2f\")", focus.Arcsec(f.MinFWHM, scale).Sec())
	}
	b.WriteByte('\n')
}

// writeSynth writes one synthetic catalog per file argument.  Seeds
// increase from -seed so each file is a different field.
func writeSynth(cl *commandLine, cfg *config.Config) error {
	trailY, err := cfg.Axis()
	if err != nil {
		return err
	}
	prm := synth.DefaultParams()
	prm.Stars = cl.synth
	prm.BestSlot = len(cfg.Pattern) / 2
	for i, fn := range cl.catalogs {
		prm.Seed = cl.seed + uint64(i)
		if err := writeSynthFile(fn, cfg.ShiftPattern(), prm, trailY); err != nil {
			return err
		}
	}
	return nil
}

func writeSynthFile(fn string, p shiftstore.ShiftPattern, prm synth.Params,
	trailY bool) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()
	return synth.Generate(p, prm).WriteCatalog(f, trailY)
}
