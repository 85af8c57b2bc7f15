package obsseq

import (
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed composite_types.yaml
var defaultCompositeYAML []byte

// CompositeSpec names the two component observation types that merge into
// one composite.
type CompositeSpec struct {
	Components []string `yaml:"components"`
}

// CompositeConfig maps composite type names to their component pairs.
type CompositeConfig map[string]CompositeSpec

// DefaultCompositeConfig returns the bundled configuration (horizontal wind
// from U/V components).
func DefaultCompositeConfig() (CompositeConfig, error) {
	return decodeCompositeConfig(defaultCompositeYAML)
}

// LoadCompositeConfig reads a YAML composite configuration. An empty path
// selects the bundled default.
func LoadCompositeConfig(path string) (CompositeConfig, error) {
	if path == "" {
		return DefaultCompositeConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read composite config: %w", err)
	}
	return decodeCompositeConfig(data)
}

// ReadCompositeConfig decodes a YAML composite configuration from a reader.
func ReadCompositeConfig(r io.Reader) (CompositeConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read composite config: %w", err)
	}
	return decodeCompositeConfig(data)
}

func decodeCompositeConfig(data []byte) (CompositeConfig, error) {
	var cfg CompositeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode composite config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every composite has exactly two components and that
// no component name appears under two composites. Validation runs before
// any merge is attempted.
func (c CompositeConfig) Validate() error {
	seen := make(map[string]string, 2*len(c))
	for name, spec := range c {
		if len(spec.Components) != 2 {
			return &ConfigError{Msg: fmt.Sprintf("composite %q must have exactly two components, got %d", name, len(spec.Components))}
		}
		for _, comp := range spec.Components {
			key := strings.ToUpper(comp)
			if prev, dup := seen[key]; dup {
				return &ConfigError{Msg: fmt.Sprintf("duplicate component %q (in %q and %q)", comp, prev, name)}
			}
			seen[key] = name
		}
	}
	return nil
}

// mergeKey matches component rows by location and time. Floats are compared
// exactly: the two halves of a real pair are written with identical
// coordinates.
type mergeKey struct {
	lat, lon, vert float64
	time           int64
}

func keyOf(r Record) mergeKey {
	return mergeKey{lat: r.Latitude, lon: r.Longitude, vert: r.Vertical, time: r.Time.Unix()}
}

// MergeReport accounts for every component row during composite
// construction: Built composite rows plus, per component type, the rows
// that found no partner and were dropped from the output.
type MergeReport struct {
	Built     int
	Unmatched map[string]int
}

func (r *MergeReport) dropped(component string, n int) {
	if n == 0 {
		return
	}
	if r.Unmatched == nil {
		r.Unmatched = make(map[string]int)
	}
	r.Unmatched[component] += n
}

// DroppedRows totals the unmatched component rows across all composites.
func (r *MergeReport) DroppedRows() int {
	n := 0
	for _, c := range r.Unmatched {
		n += c
	}
	return n
}

// BuildComposites produces a new table in which matched pairs of component
// rows are replaced by synthesized composite rows. For the observation
// column and every copy column whose name contains "ensemble", the combined
// value is the vector magnitude sqrt(a² + b²); the composite row keeps the
// first component's remaining columns and takes the composite name,
// uppercased, as its type. Rows of types not named in the configuration
// pass through unchanged. Duplicate join keys inside a component abort with
// an AmbiguousMergeError rather than multiplying rows.
func (t *Table) BuildComposites(cfg CompositeConfig) (*Table, *MergeReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if t.Model != Location3D {
		return nil, nil, &ConfigError{Msg: "composite construction needs 3-D locations to match components"}
	}

	isComponent := make(map[string]bool)
	for _, spec := range cfg {
		for _, comp := range spec.Components {
			isComponent[strings.ToUpper(comp)] = true
		}
	}

	var out []Record
	for _, rec := range t.Records {
		if !isComponent[strings.ToUpper(rec.Type)] {
			out = append(out, rec)
		}
	}

	combine := t.combineIndexes()
	report := &MergeReport{}

	// Deterministic composite order regardless of map iteration.
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rows, err := t.mergeComposite(name, cfg[name], combine, report)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rows...)
	}

	return t.filtered(out), report, nil
}

// combineIndexes returns the copy indexes combined by root-sum-of-squares:
// every copy whose name contains "ensemble", plus the observation column.
func (t *Table) combineIndexes() []int {
	var idx []int
	for i, name := range t.CopyNames {
		if strings.Contains(strings.ToLower(name), "ensemble") {
			idx = append(idx, i)
		}
	}
	if i, ok := t.CopyIndex(ObservationColumn); ok {
		idx = append(idx, i)
	}
	return idx
}

// mergeComposite inner-joins the two component row sets on location+time,
// one B row per A row, and synthesizes the combined records.
func (t *Table) mergeComposite(name string, spec CompositeSpec, combine []int, report *MergeReport) ([]Record, error) {
	compA, compB := spec.Components[0], spec.Components[1]
	rowsA := t.selectType(compA)
	rowsB := t.selectType(compB)

	byKey := make(map[mergeKey]Record, len(rowsB))
	for _, rb := range rowsB {
		k := keyOf(rb)
		if _, dup := byKey[k]; dup {
			return nil, &AmbiguousMergeError{Composite: name, Component: compB, Key: k}
		}
		byKey[k] = rb
	}

	seenA := make(map[mergeKey]bool, len(rowsA))
	matchedB := make(map[mergeKey]bool, len(rowsB))
	merged := make([]Record, 0, len(rowsA))
	droppedA := 0

	for _, ra := range rowsA {
		k := keyOf(ra)
		if seenA[k] {
			return nil, &AmbiguousMergeError{Composite: name, Component: compA, Key: k}
		}
		seenA[k] = true

		rb, ok := byKey[k]
		if !ok {
			droppedA++
			continue
		}
		matchedB[k] = true

		rec := ra
		rec.Copies = make([]float64, len(ra.Copies))
		copy(rec.Copies, ra.Copies)
		for _, ci := range combine {
			rec.Copies[ci] = math.Sqrt(ra.Copies[ci]*ra.Copies[ci] + rb.Copies[ci]*rb.Copies[ci])
		}
		rec.Type = strings.ToUpper(name)
		merged = append(merged, rec)
	}

	report.Built += len(merged)
	report.dropped(compA, droppedA)
	report.dropped(compB, len(rowsB)-len(matchedB))
	return merged, nil
}

// selectType returns the records whose type matches, case-insensitively.
func (t *Table) selectType(typeName string) []Record {
	var out []Record
	for _, rec := range t.Records {
		if strings.EqualFold(rec.Type, typeName) {
			out = append(out, rec)
		}
	}
	return out
}
