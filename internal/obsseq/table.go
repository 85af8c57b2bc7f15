package obsseq

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Canonical column names.
const (
	ObservationColumn = "observation"
	QCColumn          = "DART_quality_control"
	priorMeanColumn   = "prior_ensemble_mean"
	priorSpreadColumn = "prior_ensemble_spread"
)

// synonymsForObs are copy names that mean "the observation value" in files
// produced by different converters. They are renamed to ObservationColumn
// during assembly.
var synonymsForObs = []string{
	"NCEP_BUFR_observation",
	"AIRS_observation",
	"GTSPP_observation",
	"SST_observation",
	"observations",
}

// Options tunes parsing. The zero value is ready to use.
type Options struct {
	// MaxMetadataLines bounds the lines a record may carry beyond its
	// copies before the parse fails with a FormatError. Zero means the
	// default of 100.
	MaxMetadataLines int
}

// Table is the ordered, column-homogeneous collection of decoded records.
// It is immutable once built: derivations (bias, squared error, composites)
// produce new columns or new tables, never edits in place.
type Table struct {
	Model     LocationModel
	CopyNames []string
	Records   []Record
	// HasBias reports whether the bias and sq_err columns were derived
	// (true when the file carries a prior ensemble mean).
	HasBias bool
	// Types is the header's code → name table, kept for provenance.
	Types map[string]string

	copyIdx map[string]int // lower-cased copy name → index
}

// ParseFile reads and decodes a whole observation-sequence file.
func ParseFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observation sequence: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse decodes an observation sequence in one forward pass: header, then
// one block per record. Any malformed block aborts the parse; no partial
// table is returned, because the location model is inferred from early
// records and consumers assume a fully consistent table.
func Parse(r io.Reader, opts Options) (*Table, error) {
	lr := newLineReader(r)

	header, err := parseHeader(lr)
	if err != nil {
		return nil, err
	}

	dec := newDecoder(header)
	scanner := newBlockScanner(lr, len(header.CopyNames), opts.MaxMetadataLines)

	var records []Record
	for {
		b, err := scanner.next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		rec, err := dec.decode(b)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, formatErrf(lr.line, "", "no %q records found after the header", obsMarker)
	}

	t := &Table{
		Model:     dec.model,
		CopyNames: renameSynonyms(header.CopyNames),
		Records:   records,
		Types:     header.Types,
	}
	t.indexCopies()
	t.toRadians()
	t.deriveBias()
	return t, nil
}

// renameSynonyms maps converter-specific observation column names to the
// canonical one.
func renameSynonyms(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name
		for _, syn := range synonymsForObs {
			if name == syn {
				out[i] = ObservationColumn
				break
			}
		}
	}
	return out
}

func (t *Table) indexCopies() {
	t.copyIdx = make(map[string]int, len(t.CopyNames))
	for i, name := range t.CopyNames {
		t.copyIdx[strings.ToLower(name)] = i
	}
}

// toRadians converts 3-D longitudes and latitudes from the degrees written
// in the file to the radians the table stores.
func (t *Table) toRadians() {
	if t.Model != Location3D {
		return
	}
	for i := range t.Records {
		t.Records[i].Longitude = t.Records[i].Longitude * math.Pi / 180
		t.Records[i].Latitude = t.Records[i].Latitude * math.Pi / 180
	}
}

// deriveBias appends bias = prior_ensemble_mean − observation and
// sq_err = bias² when the file carries both columns (an obs_seq.final).
func (t *Table) deriveBias() {
	mean, okMean := t.CopyIndex(priorMeanColumn)
	obs, okObs := t.CopyIndex(ObservationColumn)
	if !okMean || !okObs {
		return
	}
	for i := range t.Records {
		r := &t.Records[i]
		r.Bias = r.Copies[mean] - r.Copies[obs]
		r.SqErr = r.Bias * r.Bias
	}
	t.HasBias = true
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// CopyIndex resolves a copy column by name, case-insensitively.
func (t *Table) CopyIndex(name string) (int, bool) {
	i, ok := t.copyIdx[strings.ToLower(name)]
	return i, ok
}

// Columns lists the table's column names in row order.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.CopyNames)+10)
	cols = append(cols, "obs_num")
	cols = append(cols, t.CopyNames...)
	if t.Model == Location3D {
		cols = append(cols, "longitude", "latitude", "vertical", "vert_unit")
	} else {
		cols = append(cols, "location")
	}
	cols = append(cols, "type", "seconds", "days", "time", "obs_err_var")
	if t.HasBias {
		cols = append(cols, "bias", "sq_err")
	}
	return cols
}

// Row is one record keyed by column name, the export form used by the Kafka
// serializer and the report tooling.
type Row map[string]any

// Row materializes record i as a column-keyed map.
func (t *Table) Row(i int) Row {
	r := t.Records[i]
	row := make(Row, len(t.CopyNames)+12)
	row["obs_num"] = r.ObsNum
	for j, name := range t.CopyNames {
		row[name] = r.Copies[j]
	}
	if t.Model == Location3D {
		row["longitude"] = r.Longitude
		row["latitude"] = r.Latitude
		row["vertical"] = r.Vertical
		row["vert_unit"] = r.VertUnit
	} else {
		row["location"] = r.Location
	}
	row["type"] = r.Type
	row["seconds"] = r.Seconds
	row["days"] = r.Days
	row["time"] = r.Time
	row["obs_err_var"] = r.ObsErrVar
	if t.HasBias {
		row["bias"] = r.Bias
		row["sq_err"] = r.SqErr
	}
	return row
}

// Rows materializes every record. Row order matches file order.
func (t *Table) Rows() []Row {
	rows := make([]Row, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// filtered returns a new table sharing this table's column metadata and
// holding only the given records.
func (t *Table) filtered(records []Record) *Table {
	out := &Table{
		Model:     t.Model,
		CopyNames: t.CopyNames,
		Records:   records,
		HasBias:   t.HasBias,
		Types:     t.Types,
		copyIdx:   t.copyIdx,
	}
	return out
}
