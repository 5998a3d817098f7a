// Public domain.

// Package config holds the settings of the shiftstore command.
//
// Settings are layered, lowest precedence first: the defaults of New, an
// optional YAML file, SHIFTSTORE_* environment variables, and finally
// whatever command line flags the caller applies to the loaded Config.
package config

import (
	"fmt"
	"runtime"

	"github.com/rts2/shiftstore/internal/logger"
	"github.com/rts2/shiftstore/internal/shiftstore"
)

// Config contains the command settings.
type Config struct {
	// LogLevel: debug, info, warn or error.
	LogLevel string `koanf:"log_level"`

	// Pattern is the shift pattern, pixel offsets between sub-exposures.
	Pattern []float64 `koanf:"pattern"`

	// SearchTolerance and OtherTolerance are the matching windows across
	// and along the trail, pixels.
	SearchTolerance float64 `koanf:"search_tolerance"`
	OtherTolerance  float64 `koanf:"other_tolerance"`

	// PartialLen accepts sequences with this many filled slots; 0 is strict.
	PartialLen int `koanf:"partial_len"`

	// MaxSequences ends a run early; 0 is no limit.
	MaxSequences int `koanf:"max_sequences"`

	// MinSequences is the count below which a run is reported short.
	MinSequences int `koanf:"min_sequences"`

	// Flux selects flux rather than magnitude as brightness.
	Flux bool `koanf:"flux"`

	// TrailAxis is the image axis the telescope is shifted along, x or y.
	TrailAxis string `koanf:"trail_axis"`

	// MaxFlags drops detections with larger extractor flags; negative
	// keeps everything.
	MaxFlags int `koanf:"max_flags"`

	// FocusPositions are the focuser positions of the sub-exposures, one
	// per slot.  Empty skips the focus fit.
	FocusPositions []float64 `koanf:"focus_positions"`

	// PlateScale in arc seconds per pixel; 0 reports FWHM in pixels only.
	PlateScale float64 `koanf:"plate_scale"`

	// ParallelTrials evaluates pivot placements concurrently.
	ParallelTrials bool `koanf:"parallel_trials"`

	// Workers bounds the number of catalogs processed at once.
	Workers int `koanf:"workers"`
}

// New returns a Config with defaults.
func New() *Config {
	d := shiftstore.DefaultConfig()
	return &Config{
		LogLevel:        "warn",
		SearchTolerance: d.SearchTolerance,
		OtherTolerance:  d.OtherTolerance,
		MaxSequences:    d.MaxSequences,
		MinSequences:    3,
		TrailAxis:       "x",
		MaxFlags:        0,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// Validate checks the settings this package owns.  Matching parameters
// are checked by shiftstore when a run starts.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Axis(); err != nil {
		return err
	}
	if err := c.ShiftPattern().ValidateRun(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if n := len(c.FocusPositions); n > 0 && n != len(c.Pattern)+1 {
		return fmt.Errorf("%w: %d focus positions for %d slots",
			ErrInvalidConfig, n, len(c.Pattern)+1)
	}
	if c.PlateScale < 0 {
		return fmt.Errorf("%w: plate scale %v", ErrInvalidConfig, c.PlateScale)
	}
	if c.MinSequences < 0 {
		return fmt.Errorf("%w: min sequences %d", ErrInvalidConfig, c.MinSequences)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Axis returns true if the trail runs along image y.
func (c *Config) Axis() (trailY bool, err error) {
	switch c.TrailAxis {
	case "x", "X":
		return false, nil
	case "y", "Y":
		return true, nil
	}
	return false, fmt.Errorf("%w: trail axis %q", ErrInvalidConfig, c.TrailAxis)
}

// ShiftPattern returns Pattern as a shiftstore.ShiftPattern.
func (c *Config) ShiftPattern() shiftstore.ShiftPattern {
	return shiftstore.ShiftPattern(c.Pattern)
}

// Matching returns the matching parameters for shiftstore.
func (c *Config) Matching() shiftstore.Config {
	return shiftstore.Config{
		SearchTolerance: c.SearchTolerance,
		OtherTolerance:  c.OtherTolerance,
		PartialLen:      c.PartialLen,
		MaxSequences:    c.MaxSequences,
		Flux:            c.Flux,
		ParallelTrials:  c.ParallelTrials,
	}
}
