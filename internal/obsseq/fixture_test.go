package obsseq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture builders producing the ASCII observation-sequence layout emitted
// by assimilation runs. Kept line-faithful so the scanner's lookahead and
// the decoder's fixed tail are exercised against realistic spacing.

var testTypes = [][2]string{
	{"5", "RADIOSONDE_U_WIND_COMPONENT"},
	{"6", "RADIOSONDE_V_WIND_COMPONENT"},
	{"14", "RADIOSONDE_TEMPERATURE"},
}

var testCopyNames = []string{
	"observation",
	"prior ensemble mean",
	"prior ensemble spread",
	"DART quality control",
}

func fixtureHeader(types [][2]string, copyNames []string, numObs int) string {
	var b strings.Builder
	b.WriteString(" obs_sequence\n")
	b.WriteString("obs_kind_definitions\n")
	fmt.Fprintf(&b, "           %d\n", len(types))
	for _, t := range types {
		fmt.Fprintf(&b, "          %s %s\n", t[0], t[1])
	}
	fmt.Fprintf(&b, "  num_copies:            %d  num_qc:            1\n", len(copyNames)-1)
	fmt.Fprintf(&b, "  num_obs:            %d  max_num_obs:            %d\n", numObs, numObs)
	for _, name := range copyNames {
		b.WriteString(name + "\n")
	}
	fmt.Fprintf(&b, "  first:            1  last:            %d\n", numObs)
	return b.String()
}

type fixtureObs struct {
	num      int
	copies   []float64
	lon, lat float64 // degrees, as written in the file
	vert     float64
	vcode    int
	loc1d    *float64 // non-nil selects the 1-D location model
	kindCode string
	seconds  int
	days     int
	errVar   float64
}

func (o fixtureObs) build() string {
	var b strings.Builder
	fmt.Fprintf(&b, " OBS            %d\n", o.num)
	for _, c := range o.copies {
		fmt.Fprintf(&b, "   %.14f\n", c)
	}
	b.WriteString("          -1           2          -1\n")
	b.WriteString("obdef\n")
	if o.loc1d != nil {
		b.WriteString("loc1d\n")
		fmt.Fprintf(&b, "    %.14f\n", *o.loc1d)
	} else {
		b.WriteString("loc3d\n")
		fmt.Fprintf(&b, "     %.14f        %.14f         %.14f      %d\n", o.lon, o.lat, o.vert, o.vcode)
	}
	b.WriteString("kind\n")
	fmt.Fprintf(&b, "           %s\n", o.kindCode)
	fmt.Fprintf(&b, " %d     %d\n", o.seconds, o.days)
	fmt.Fprintf(&b, "   %.14f\n", o.errVar)
	return b.String()
}

func fixtureFile(types [][2]string, copyNames []string, obs []fixtureObs) string {
	var b strings.Builder
	b.WriteString(fixtureHeader(types, copyNames, len(obs)))
	for _, o := range obs {
		b.WriteString(o.build())
	}
	return b.String()
}

// writeFixtureFile stores fixture text in a temp file and returns its path.
func writeFixtureFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obs_seq.final")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// defaultObs returns a well-formed 3-D U-wind observation with the given
// sequence number, observation value, and QC flag.
func defaultObs(num int, value, qc float64) fixtureObs {
	return fixtureObs{
		num:      num,
		copies:   []float64{value, value + 0.5, 0.25, qc},
		lon:      120, lat: 45, vert: 850,
		vcode:    2,
		kindCode: "5",
		seconds:  3600, days: 1,
		errVar: 1.0,
	}
}
