// Package obsseq parses line-oriented ASCII observation-sequence files from
// data-assimilation workflows into an in-memory table, derives secondary
// quantities, and answers quality-control queries over the result.
//
// # File layout
//
// A file opens with a preamble that ends at the first line containing both
// "first:" and "last:". Inside the preamble:
//
//	line index 2 (0-based)    size N of the observation-type table
//	next N lines              "<code> <name>" type-table entries
//	after the first line with both "num_obs:" and "max_num_obs:"
//	                          one copy name per line, to the preamble's end
//
// Copy names with internal whitespace are stored with underscores, e.g.
// "prior ensemble mean" → "prior_ensemble_mean". The number of copy names
// is a file-wide invariant: every record leads with exactly that many
// numeric values.
//
// Each record block starts at a line containing "OBS":
//
//	OBS            <obs_num>
//	<copy value>              (one line per copy name)
//	...                       (optional linked-list / obs_def metadata)
//	loc3d                     (or loc1d)
//	<lon> <lat> <vert> <code> (loc3d payload; loc1d payload is one scalar)
//	kind
//	<type code>
//	<seconds> <days>
//	<obs error variance>
//
// Block length is not announced, so the scanner finds each boundary by
// seeing the next block's marker one line late and carrying it over.
//
// # Location models
//
// loc3d holds longitude and latitude in degrees (stored in radians) plus a
// vertical value whose unit is selected by an integer code: -2 undefined,
// -1 surface (m), 1 model level, 2 pressure (Pa), 3 height (m),
// 4 scale height. loc1d holds a single scalar coordinate. A file uses one
// model throughout; the first record fixes it and later disagreement is a
// FormatError.
//
// # Time encoding
//
// Record times are (seconds, days) offsets from 1601-01-01T00:00:00Z on the
// proleptic Gregorian calendar, seconds first.
//
// # Derived quantities
//
// Files carrying a prior_ensemble_mean copy (obs_seq.final output) get
// bias = prior_ensemble_mean − observation and sq_err = bias² columns.
// Composite observations merge matched pairs of component types (wind U/V)
// into one vector-magnitude row; see [Table.BuildComposites].
//
// # Quality control
//
// The DART_quality_control copy holds an integer flag per observation:
// 0 passed, >0 a specific failure reason.
package obsseq
