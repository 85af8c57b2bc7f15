package obsseq

import (
	"errors"
	"fmt"
)

// FormatError reports malformed or unexpected observation-sequence file
// structure: missing markers, wrong token counts, unparsable numerics, or
// unresolvable type and vertical-unit codes. Line is 1-based; 0 means the
// position is unknown. Text holds the offending line, trimmed, to aid
// debugging hand-edited files.
type FormatError struct {
	Line int
	Text string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("obsseq: line %d: %s: %q", e.Line, e.Msg, e.Text)
	}
	return "obsseq: " + e.Msg
}

func formatErrf(line int, text, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Text: text, Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports an invalid composite-type configuration, such as a
// component name listed under two composites.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "obsseq: composite config: " + e.Msg
}

// AmbiguousMergeError reports a duplicate (latitude, longitude, vertical,
// time) join key inside one component during composite construction. A
// duplicate key would multiply rows in the merge, so it aborts the build
// instead.
type AmbiguousMergeError struct {
	Composite string
	Component string
	Key       mergeKey
}

func (e *AmbiguousMergeError) Error() string {
	return fmt.Sprintf("obsseq: composite %q: duplicate join key in component %q: lat=%v lon=%v vert=%v time=%v",
		e.Composite, e.Component, e.Key.lat, e.Key.lon, e.Key.vert, e.Key.time)
}

// ErrFlagNotFound is returned by SelectByFlag when the requested QC flag
// does not occur anywhere in the QC column.
var ErrFlagNotFound = errors.New("obsseq: qc flag not found in table")

// ErrNoQCColumn is returned by QC selections on tables whose copies do not
// include a quality-control column.
var ErrNoQCColumn = errors.New("obsseq: table has no quality-control column")
