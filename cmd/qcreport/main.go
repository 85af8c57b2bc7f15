// Command qcreport parses an observation-sequence file and prints a
// quality-control summary: observations possible versus used per type,
// per-type error statistics, and optionally the rows carrying a specific
// QC flag.
//
// Usage:
//
//	go run ./cmd/qcreport -file obs_seq.final
//	go run ./cmd/qcreport -file obs_seq.final -composites default
//	go run ./cmd/qcreport -file obs_seq.final -flag 7
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "qcreport: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "path to the observation-sequence file")
	composites := flag.String("composites", "", `composite config: "" disables, "default" uses the embedded config, anything else is a YAML path`)
	qcFlag := flag.Int("flag", -1, "print the count of rows carrying this QC flag (-1 disables)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -file")
	}

	table, err := obsseq.ParseFile(*file, obsseq.Options{})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d observations, %d copies, %s locations\n",
		*file, table.Len(), len(table.CopyNames), table.Model)

	if *composites != "" {
		table, err = applyComposites(table, *composites)
		if err != nil {
			return err
		}
	}

	if err := printUsage(table); err != nil {
		return err
	}
	if err := printStats(table); err != nil {
		return err
	}

	if *qcFlag >= 0 {
		flagged, err := table.SelectByFlag(*qcFlag)
		if errors.Is(err, obsseq.ErrFlagNotFound) {
			fmt.Printf("\nQC flag %d: no rows\n", *qcFlag)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("\nQC flag %d: %d rows\n", *qcFlag, flagged.Len())
	}

	return nil
}

func applyComposites(table *obsseq.Table, arg string) (*obsseq.Table, error) {
	path := arg
	if arg == "default" {
		path = ""
	}
	cfg, err := obsseq.LoadCompositeConfig(path)
	if err != nil {
		return nil, err
	}

	merged, report, err := table.BuildComposites(cfg)
	if err != nil {
		return nil, err
	}

	fmt.Printf("composites: %d built, %d component rows unmatched\n", report.Built, report.DroppedRows())
	for component, n := range report.Unmatched {
		fmt.Printf("  unmatched %s: %d\n", component, n)
	}
	return merged, nil
}

func printUsage(table *obsseq.Table) error {
	usage, err := table.PossibleVsUsed()
	if errors.Is(err, obsseq.ErrNoQCColumn) {
		fmt.Println("\nno QC column, skipping possible-vs-used report")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tPOSSIBLE\tUSED")
	for _, u := range usage {
		fmt.Fprintf(w, "%s\t%d\t%d\n", u.Type, u.Possible, u.Used)
	}
	return w.Flush()
}

func printStats(table *obsseq.Table) error {
	stats, err := table.SummaryStats()
	if err != nil {
		// Files without both an observation and a prior mean copy have no
		// error statistics to report.
		fmt.Println("\nno error statistics available:", err)
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOUNT\tRMSE\tBIAS\tTOTAL SPREAD")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\n", s.Type, s.Count, s.RMSE, s.MeanBias, s.TotalSpread)
	}
	return w.Flush()
}
