// Command genmock generates a synthetic observation-sequence file for test
// and demo runs. It emits paired U/V wind components sharing a location and
// time, so composite construction has partners to merge, plus standalone
// temperature observations and a sprinkling of failed QC flags.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/obs_seq.final -pairs 50 -temps 25
//	go run ./cmd/genmock -out testdata/obs_seq.final -scenario scenario.yaml
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	uWindCode = 5
	vWindCode = 6
	tempCode  = 14
)

var copyNames = []string{
	"observation",
	"prior ensemble mean",
	"prior ensemble spread",
	"DART quality control",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// scenario controls the shape of the generated fixture. Flags cover the
// common case; a YAML scenario file pins a fixture's shape alongside the
// tests that assert on it.
type scenario struct {
	Pairs    int     `yaml:"pairs"`
	Temps    int     `yaml:"temps"`
	FailRate float64 `yaml:"fail_rate"`
	Seed     int64   `yaml:"seed"`
}

func run() error {
	out := flag.String("out", "", "output path for the generated file")
	scenarioPath := flag.String("scenario", "", "YAML scenario file; overrides the shape flags")
	pairs := flag.Int("pairs", 50, "number of U/V wind component pairs")
	temps := flag.Int("temps", 25, "number of temperature observations")
	failRate := flag.Float64("fail-rate", 0.1, "fraction of observations given a failing QC flag")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	sc := scenario{Pairs: *pairs, Temps: *temps, FailRate: *failRate, Seed: *seed}
	if *scenarioPath != "" {
		data, err := os.ReadFile(*scenarioPath)
		if err != nil {
			return fmt.Errorf("reading scenario: %w", err)
		}
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return fmt.Errorf("parsing scenario: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(sc.Seed))
	text := generate(rng, sc.Pairs, sc.Temps, sc.FailRate)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, []byte(text), 0o600); err != nil {
		return err
	}

	log.Printf("wrote %s: %d observations (%d wind pairs, %d temperatures)",
		*out, 2*sc.Pairs+sc.Temps, sc.Pairs, sc.Temps)
	return nil
}

type obs struct {
	num      int
	value    float64
	qc       float64
	lon, lat float64
	vert     float64
	kind     int
	seconds  int
	days     int
}

func generate(rng *rand.Rand, pairs, temps int, failRate float64) string {
	var all []obs
	num := 1

	nextQC := func() float64 {
		if rng.Float64() < failRate {
			return float64(4 + rng.Intn(4)) // DART failure flags are 4..7
		}
		return 0
	}

	// Mandatory pressure levels give the fixture a realistic vertical
	// structure.
	levels := []float64{1000e2, 850e2, 500e2, 250e2}

	for range pairs {
		lon := rng.Float64() * 360
		lat := rng.Float64()*180 - 90
		vert := levels[rng.Intn(len(levels))]
		seconds := rng.Intn(86400)
		days := 148880 + rng.Intn(30)

		u := rng.NormFloat64() * 10
		v := rng.NormFloat64() * 10

		all = append(all,
			obs{num: num, value: u, qc: nextQC(), lon: lon, lat: lat, vert: vert, kind: uWindCode, seconds: seconds, days: days},
			obs{num: num + 1, value: v, qc: nextQC(), lon: lon, lat: lat, vert: vert, kind: vWindCode, seconds: seconds, days: days},
		)
		num += 2
	}

	for range temps {
		all = append(all, obs{
			num:     num,
			value:   250 + rng.Float64()*50,
			qc:      nextQC(),
			lon:     rng.Float64() * 360,
			lat:     rng.Float64()*180 - 90,
			vert:    levels[rng.Intn(len(levels))],
			kind:    tempCode,
			seconds: rng.Intn(86400),
			days:    148880 + rng.Intn(30),
		})
		num++
	}

	var b strings.Builder
	b.WriteString(" obs_sequence\n")
	b.WriteString("obs_kind_definitions\n")
	b.WriteString("           3\n")
	fmt.Fprintf(&b, "          %d RADIOSONDE_U_WIND_COMPONENT\n", uWindCode)
	fmt.Fprintf(&b, "          %d RADIOSONDE_V_WIND_COMPONENT\n", vWindCode)
	fmt.Fprintf(&b, "          %d RADIOSONDE_TEMPERATURE\n", tempCode)
	fmt.Fprintf(&b, "  num_copies:            %d  num_qc:            1\n", len(copyNames)-1)
	fmt.Fprintf(&b, "  num_obs:            %d  max_num_obs:            %d\n", len(all), len(all))
	for _, name := range copyNames {
		b.WriteString(name + "\n")
	}
	fmt.Fprintf(&b, "  first:            1  last:            %d\n", len(all))

	for _, o := range all {
		writeObs(&b, rng, o)
	}
	return b.String()
}

func writeObs(b *strings.Builder, rng *rand.Rand, o obs) {
	mean := o.value + rng.NormFloat64()*0.5
	spread := 0.5 + rng.Float64()

	fmt.Fprintf(b, " OBS            %d\n", o.num)
	fmt.Fprintf(b, "   %.14f\n", o.value)
	fmt.Fprintf(b, "   %.14f\n", mean)
	fmt.Fprintf(b, "   %.14f\n", spread)
	fmt.Fprintf(b, "   %.14f\n", o.qc)
	b.WriteString("obdef\n")
	b.WriteString("loc3d\n")
	fmt.Fprintf(b, "     %.14f        %.14f         %.14f      2\n", o.lon, o.lat, o.vert)
	b.WriteString("kind\n")
	fmt.Fprintf(b, "           %d\n", o.kind)
	fmt.Fprintf(b, " %d     %d\n", o.seconds, o.days)
	fmt.Fprintf(b, "   %.14f\n", 1.0+rng.Float64())
}
