/*
Command shiftstore finds the star trails of shift-store focus exposures.

Contents

Version 0.3

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

A shift-store exposure records several sub-exposures on one frame.  Between
sub-exposures the telescope is moved by a known number of pixels along one
image axis, and typically the focuser is moved too.  Each star then appears
as a short trail of images, one per sub-exposure, spaced by the shift
pattern.  Measuring the image size along each trail gives the focus curve
of the telescope from a single frame.

Input is one or more source catalogs written by SExtractor in its ASCII_HEAD
format.  Output is the list of trails found in each catalog, and optionally
a focus fit and a binary run file of the trails.


Command line usage

  shiftstore [options] <catalog> ...
  shiftstore [options] -synth <n> <file> ...
  shiftstore -h
  shiftstore -v

Catalogs are processed concurrently, results are printed in the order the
catalogs were named.  Options:

  -c <config-file>     YAML configuration, see below
  -p <offsets>         shift pattern, pixel offsets as 50,50,-100
  -st <pixels>         search tolerance, across the trail
  -ot <pixels>         other tolerance, along the trail
  -partial <n>         accept trails with n sub-exposures found
  -max <n>             stop after n trails, 0 for no limit
  -min <n>             warn if fewer trails are found
  -maxflags <n>        drop sources with larger extraction FLAGS
  -axis x|y            image axis of the shift
  -flux                catalog brightness column is a flux
  -parallel            try pivot placements concurrently
  -focus <positions>   focuser position of each sub-exposure
  -scale <arcsec/px>   plate scale, to report FWHM in arc seconds
  -o <run-file>        write trails to a run file
  -date-obs <time>     exposure start, stored in the run file
  -log <level>         debug, info, warn or error

With -synth, no catalogs are read.  Instead n stars are simulated for the
configured pattern and a catalog is written to each named file, seeded from
-seed and increasing by one per file.


Configuration

Settings are layered.  Defaults are overridden by a YAML file given with -c
or in the environment variable SHIFTSTORE_CONFIG, that by environment
variables SHIFTSTORE_<KEY>, and that by command line options.  Keys:

  pattern            list of offsets
  search_tolerance   default 5
  other_tolerance    default 5
  partial_len        default 0, strict
  max_sequences      default 15
  min_sequences      default 3
  trail_axis         default x
  max_flags          default 0
  flux               default false
  focus_positions    list, one per sub-exposure
  plate_scale        arc seconds per pixel
  parallel_trials    default false
  workers            default number of CPUs
  log_level          default warn


File formats

Catalogs need columns NUMBER, X_IMAGE, Y_IMAGE and one of MAG_AUTO,
MAG_BEST or MAG_ISO, or with -flux, FLUX_AUTO, FLUX_BEST or FLUX_ISO.
FWHM_IMAGE, A_IMAGE, B_IMAGE, FLAGS, ALPHA_J2000 and DELTA_J2000 are used
when present.

Output has a header line per catalog, then one line per trail: trail
number, the sub-exposure index of the pivot, the pivot search and other
coordinates, pivot brightness, then the catalog number of each member in
sub-exposure order, a dash where none was found.  Sky position of the pivot
follows when the catalog has it.

The run file is a gob encoding of the trails of all catalogs, with the
pattern, matching parameters and epoch of each.


Algorithm outline

1.  Sources are sorted brightest first.  Each unused source in turn is a
pivot.

2.  Unused sources within the search tolerance of the pivot, across the
trail, form a candidate pool.  If the pool cannot fill enough slots the
pivot is rejected.

3.  The pivot is tried at each index of the pattern.  For each placement
the expected position of every other slot is computed from the pattern and
a pool source within the other tolerance of it fills the slot.  When several
qualify, the one closest in brightness to the pivot is taken.

4.  In strict mode the first placement filling every slot is accepted.  In
partial mode the placement filling the most slots is accepted if it
reaches the required count.

5.  Members of an accepted trail are never used again.  The run ends when
pivots are exhausted or the maximum number of trails is found.

-------------
Public domain.
*/
package main
