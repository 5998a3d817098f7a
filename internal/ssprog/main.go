// Public domain.

// Package ssprog implements the shiftstore command.
package ssprog

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/exit"

	"github.com/rts2/shiftstore/internal/config"
	"github.com/rts2/shiftstore/internal/logger"
	"github.com/rts2/shiftstore/internal/shiftstore"
	"github.com/rts2/shiftstore/internal/ssbin"
)

const versionString = "shiftstore version 0.3 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()

	// these functions all terminate on error
	cl := parseCommandLine()
	cfg := readConfig(cl)
	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		exit.Log(err)
	}
	epoch := cl.epoch()

	if cl.synth > 0 {
		if err := writeSynth(cl, cfg); err != nil {
			exit.Log(err)
		}
		return
	}

	s := &settings{
		cfg:     cfg,
		pattern: cfg.ShiftPattern(),
		log:     log,
		epoch:   epoch,
	}
	if s.trailY, err = cfg.Axis(); err != nil {
		exit.Log(err)
	}

	// jobCh supplies catalog names to workers.  each job carries a
	// buffered return channel that works like a ticket.  the dispatcher
	// queues tickets on prCh in argument order, so results print in that
	// order no matter which worker finishes first.  prCh is buffered so a
	// fast worker can drop off a result without waiting for slower
	// workers ahead of it.
	maxWorkers := cfg.Workers
	jobCh := make(chan *job)
	prCh := make(chan chan *result, maxWorkers*2)

	go func() {
		for _, fn := range cl.catalogs {
			rch := make(chan *result, 1)
			jobCh <- &job{fn, rch}
			prCh <- rch
		}
		close(jobCh)
		close(prCh)
	}()

	// workers are started only as jobs arrive; there may be fewer
	// catalogs than workers.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			j, ok := <-jobCh
			if !ok {
				return
			}
			go work(s, j, jobCh)
		}
	}()

	var runs []*ssbin.Run
	for rch := range prCh {
		r := <-rch
		if r.err != nil {
			exit.Log(r.err)
		}
		fmt.Print(r.text)
		runs = append(runs, r.run)
	}
	if cl.out != "" {
		if err := ssbin.WriteFile(cl.out, runs); err != nil {
			exit.Log(err)
		}
		log.Info("run file written", slog.String("file", cl.out),
			slog.Int("runs", len(runs)))
	}
}

type job struct {
	fn  string
	rch chan *result
}

// work processes the first job and then any others on jobCh until it is
// closed.
func work(s *settings, j *job, jobCh chan *job) {
	for ok := true; ok; j, ok = <-jobCh {
		j.rch <- s.process(j.fn) // buffered.  drop off and continue
	}
}

type commandLine struct {
	config   string // config file
	pattern  string
	st, ot   float64
	partial  int
	max, min int
	maxFlags int
	axis     string
	flux     bool
	parallel bool
	focus    string // focuser positions
	scale    float64
	out      string // run file
	dateObs  string
	synth    int
	seed     uint64
	logLevel string
	catalogs []string
}

func parseCommandLine() *commandLine {
	var cl commandLine
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.config, "c", "", "")
	flag.StringVar(&cl.pattern, "p", "", "")
	flag.Float64Var(&cl.st, "st", 0, "")
	flag.Float64Var(&cl.ot, "ot", 0, "")
	flag.IntVar(&cl.partial, "partial", 0, "")
	flag.IntVar(&cl.max, "max", 0, "")
	flag.IntVar(&cl.min, "min", 0, "")
	flag.IntVar(&cl.maxFlags, "maxflags", 0, "")
	flag.StringVar(&cl.axis, "axis", "", "")
	flag.BoolVar(&cl.flux, "flux", false, "")
	flag.BoolVar(&cl.parallel, "parallel", false, "")
	flag.StringVar(&cl.focus, "focus", "", "")
	flag.Float64Var(&cl.scale, "scale", 0, "")
	flag.StringVar(&cl.out, "o", "", "")
	flag.StringVar(&cl.dateObs, "date-obs", "", "")
	flag.IntVar(&cl.synth, "synth", 0, "")
	flag.Uint64Var(&cl.seed, "seed", 3, "")
	flag.StringVar(&cl.logLevel, "log", "", "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: shiftstore [options] <catalog> ...        find shift-store sequences
       shiftstore [options] -synth <n> <file> ... write synthetic catalogs
       shiftstore -h                             display help
       shiftstore -v                             display version

Options:
       -c <config-file>
       -p <offsets>          shift pattern, as 50,50,-100
       -st <pixels>          search tolerance, across the trail
       -ot <pixels>          other tolerance, along the trail
       -partial <n>          accept sequences with n slots filled
       -max <n>              stop after n sequences, 0 no limit
       -min <n>              warn if fewer sequences are found
       -maxflags <n>         drop sources with larger FLAGS, -1 keep all
       -axis x|y             image axis of the shift
       -flux                 catalog brightness is flux
       -parallel             try pivot placements concurrently
       -focus <positions>    focuser position of each sub-exposure
       -scale <arcsec/px>    plate scale
       -o <run-file>         write sequences for the focus stage
       -date-obs <time>      exposure start, FITS DATE-OBS format
       -seed <n>             seed for -synth
       -log <level>          debug, info, warn, error
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	case flag.NArg() == 0:
		flag.Usage()
		os.Exit(1)
	}
	cl.catalogs = flag.Args()
	return &cl
}

// readConfig layers explicitly given flags over the loaded configuration.
func readConfig(cl *commandLine) *config.Config {
	cfg, err := config.Load(context.Background(), cl.config)
	if err != nil {
		exit.Log(err)
	}
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			var p shiftstore.ShiftPattern
			if p, err = shiftstore.ParsePattern(cl.pattern); err != nil {
				flagErr = err
			}
			cfg.Pattern = p
		case "st":
			cfg.SearchTolerance = cl.st
		case "ot":
			cfg.OtherTolerance = cl.ot
		case "partial":
			cfg.PartialLen = cl.partial
		case "max":
			cfg.MaxSequences = cl.max
		case "min":
			cfg.MinSequences = cl.min
		case "maxflags":
			cfg.MaxFlags = cl.maxFlags
		case "axis":
			cfg.TrailAxis = cl.axis
		case "flux":
			cfg.Flux = cl.flux
		case "parallel":
			cfg.ParallelTrials = cl.parallel
		case "focus":
			if cfg.FocusPositions, err = parseFloats(cl.focus); err != nil {
				flagErr = fmt.Errorf("-focus: %w", err)
			}
		case "scale":
			cfg.PlateScale = cl.scale
		case "log":
			cfg.LogLevel = cl.logLevel
		}
	})
	if flagErr != nil {
		exit.Log(flagErr)
	}
	if err := cfg.Validate(); err != nil {
		exit.Log(err)
	}
	return cfg
}

func parseFloats(s string) ([]float64, error) {
	f := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	v := make([]float64, len(f))
	for i, fs := range f {
		var err error
		if v[i], err = strconv.ParseFloat(fs, 64); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// epoch parses -date-obs.  FITS DATE-OBS has no zone and is UTC.
func (cl *commandLine) epoch() time.Time {
	if cl.dateObs == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, cl.dateObs); err == nil {
			return t.UTC()
		}
	}
	exit.Log("Invalid -date-obs: " + cl.dateObs)
	return time.Time{}
}

func printHelp() {
	fmt.Println(`
Shiftstore finds the star trails of a shift-store focus exposure in source
extractor catalogs.  The telescope is moved by a known pattern of pixel
offsets between sub-exposures of one frame, so every star appears once per
sub-exposure along one image axis.  Trails matching the pattern are listed
one per line, a dash marking a sub-exposure where the star was not found.

Config file keys (YAML), environment SHIFTSTORE_<KEY>:
   pattern            search_tolerance   other_tolerance
   partial_len        max_sequences      min_sequences
   trail_axis         max_flags          flux
   focus_positions    plate_scale        parallel_trials
   workers            log_level

For full documentation:
   go doc github.com/rts2/shiftstore`)
}
