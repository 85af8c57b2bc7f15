package obsseq

import (
	"strconv"
	"strings"
)

// Location and type marker lines inside a record block. Unlike the OBS
// marker these stand alone on their line.
const (
	loc3dMarker = "loc3d"
	loc1dMarker = "loc1d"
	kindMarker  = "kind"
)

// decoder turns raw record blocks into Records. The location model is
// inferred from the first decoded block and enforced on every later one, so
// a mixed-model file fails instead of silently misparsing.
type decoder struct {
	types   map[string]string
	nCopies int
	model   LocationModel
}

func newDecoder(h *Header) *decoder {
	return &decoder{types: h.Types, nCopies: len(h.CopyNames)}
}

func (d *decoder) decode(b *block) (Record, error) {
	var rec Record

	// Auxiliary obs-definition metadata sits between the location/type
	// markers and the trailing time and variance lines; it is discarded.
	// Minimum shape: marker, copies, location marker + payload, kind
	// marker + code, time, variance.
	if len(b.lines) < d.nCopies+7 {
		return rec, formatErrf(b.start, b.lines[0], "record block has %d lines, need at least %d", len(b.lines), d.nCopies+7)
	}

	fields := strings.Fields(b.lines[0])
	if len(fields) < 2 {
		return rec, formatErrf(b.start, b.lines[0], "marker line has no sequence number")
	}
	obsNum, err := strconv.Atoi(fields[1])
	if err != nil {
		return rec, formatErrf(b.start, b.lines[0], "sequence number %q is not an integer", fields[1])
	}
	rec.ObsNum = obsNum

	rec.Copies = make([]float64, d.nCopies)
	for i := 0; i < d.nCopies; i++ {
		v, err := strconv.ParseFloat(b.lines[1+i], 64)
		if err != nil {
			return rec, formatErrf(b.lineNum(1+i), b.lines[1+i], "copy value is not numeric")
		}
		rec.Copies[i] = v
	}

	if err := d.decodeLocation(b, &rec); err != nil {
		return rec, err
	}
	if err := d.decodeType(b, &rec); err != nil {
		return rec, err
	}
	return rec, d.decodeTail(b, &rec)
}

// decodeLocation finds the loc3d or loc1d marker and parses the payload line
// that follows it.
func (d *decoder) decodeLocation(b *block, rec *Record) error {
	if i := indexOf(b.lines, loc3dMarker); i >= 0 {
		if err := d.confirmModel(Location3D, b, i); err != nil {
			return err
		}
		return parseLoc3d(b, i+1, rec)
	}
	if i := indexOf(b.lines, loc1dMarker); i >= 0 {
		if err := d.confirmModel(Location1D, b, i); err != nil {
			return err
		}
		return parseLoc1d(b, i+1, rec)
	}
	return formatErrf(b.start, b.lines[0], "no location token: neither %q nor %q found", loc3dMarker, loc1dMarker)
}

// confirmModel fixes the location model on the first record and rejects any
// later record that disagrees.
func (d *decoder) confirmModel(m LocationModel, b *block, markerIdx int) error {
	if d.model == LocationUnknown {
		d.model = m
		return nil
	}
	if d.model != m {
		return formatErrf(b.lineNum(markerIdx), b.lines[markerIdx],
			"location model %s does not match the file's model %s", m, d.model)
	}
	return nil
}

func parseLoc3d(b *block, i int, rec *Record) error {
	if i >= len(b.lines) {
		return formatErrf(b.start, b.lines[0], "loc3d marker has no payload line")
	}
	fields := strings.Fields(b.lines[i])
	if len(fields) != 4 {
		return formatErrf(b.lineNum(i), b.lines[i], "loc3d payload must be four fields, got %d", len(fields))
	}
	var err error
	if rec.Longitude, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return formatErrf(b.lineNum(i), b.lines[i], "loc3d longitude is not numeric")
	}
	if rec.Latitude, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return formatErrf(b.lineNum(i), b.lines[i], "loc3d latitude is not numeric")
	}
	if rec.Vertical, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return formatErrf(b.lineNum(i), b.lines[i], "loc3d vertical value is not numeric")
	}
	code, err := strconv.Atoi(fields[3])
	if err != nil {
		return formatErrf(b.lineNum(i), b.lines[i], "vertical-coordinate code is not an integer")
	}
	unit, ok := verticalUnits[code]
	if !ok {
		return formatErrf(b.lineNum(i), b.lines[i], "unknown vertical-coordinate code %d", code)
	}
	rec.VertUnit = unit
	return nil
}

func parseLoc1d(b *block, i int, rec *Record) error {
	if i >= len(b.lines) {
		return formatErrf(b.start, b.lines[0], "loc1d marker has no payload line")
	}
	v, err := strconv.ParseFloat(b.lines[i], 64)
	if err != nil {
		return formatErrf(b.lineNum(i), b.lines[i], "loc1d location is not numeric")
	}
	rec.Location = v
	return nil
}

// decodeType resolves the numeric type code following the kind marker
// against the header's type table.
func (d *decoder) decodeType(b *block, rec *Record) error {
	i := indexOf(b.lines, kindMarker)
	if i < 0 {
		return formatErrf(b.start, b.lines[0], "no %q token found", kindMarker)
	}
	if i+1 >= len(b.lines) {
		return formatErrf(b.lineNum(i), b.lines[i], "kind marker has no type-code line")
	}
	code := b.lines[i+1]
	name, ok := d.types[code]
	if !ok {
		return formatErrf(b.lineNum(i+1), code, "type code %q is not in the header type table", code)
	}
	rec.Type = name
	return nil
}

// decodeTail parses the fixed block tail: the second-to-last line holds
// "<seconds> <days>" and the last line the observation-error variance.
func (d *decoder) decodeTail(b *block, rec *Record) error {
	n := len(b.lines)
	timeLine := b.lines[n-2]
	fields := strings.Fields(timeLine)
	if len(fields) != 2 {
		return formatErrf(b.lineNum(n-2), timeLine, "time line must be two integers, got %d fields", len(fields))
	}
	seconds, err := strconv.Atoi(fields[0])
	if err != nil {
		return formatErrf(b.lineNum(n-2), timeLine, "seconds value is not an integer")
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil {
		return formatErrf(b.lineNum(n-2), timeLine, "days value is not an integer")
	}
	rec.Seconds = seconds
	rec.Days = days
	rec.Time = TimeFromOffsets(seconds, days)

	v, err := strconv.ParseFloat(b.lines[n-1], 64)
	if err != nil {
		return formatErrf(b.lineNum(n-1), b.lines[n-1], "observation-error variance is not numeric")
	}
	rec.ObsErrVar = v
	return nil
}

func indexOf(lines []string, token string) int {
	for i, l := range lines {
		if l == token {
			return i
		}
	}
	return -1
}
