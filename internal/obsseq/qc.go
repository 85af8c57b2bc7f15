package obsseq

import (
	"math"
	"sort"
)

// qcIndex resolves the quality-control copy column.
func (t *Table) qcIndex() (int, error) {
	i, ok := t.CopyIndex(QCColumn)
	if !ok {
		return 0, ErrNoQCColumn
	}
	return i, nil
}

// SelectByFlag returns the rows whose QC flag equals flag. A flag that
// occurs nowhere in the column is an error: asking for it is almost always
// a typo in an analysis script.
func (t *Table) SelectByFlag(flag int) (*Table, error) {
	qc, err := t.qcIndex()
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, rec := range t.Records {
		if rec.Copies[qc] == float64(flag) {
			out = append(out, rec)
		}
	}
	if out == nil {
		return nil, ErrFlagNotFound
	}
	return t.filtered(out), nil
}

// SelectFailed returns the rows that failed quality control (flag > 0).
func (t *Table) SelectFailed() (*Table, error) {
	qc, err := t.qcIndex()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0)
	for _, rec := range t.Records {
		if rec.Copies[qc] > 0 {
			out = append(out, rec)
		}
	}
	return t.filtered(out), nil
}

// TypeUsage counts, for one observation type, how many observations were
// possible (present in the file) and how many were used (passed QC).
type TypeUsage struct {
	Type     string
	Possible int
	Used     int
}

// PossibleVsUsed reports per-type observation counts, sorted by type name.
// possible == used + failed holds for every type.
func (t *Table) PossibleVsUsed() ([]TypeUsage, error) {
	qc, err := t.qcIndex()
	if err != nil {
		return nil, err
	}

	possible := make(map[string]int)
	failed := make(map[string]int)
	for _, rec := range t.Records {
		possible[rec.Type]++
		if rec.Copies[qc] > 0 {
			failed[rec.Type]++
		}
	}

	usage := make([]TypeUsage, 0, len(possible))
	for typ, n := range possible {
		usage = append(usage, TypeUsage{Type: typ, Possible: n, Used: n - failed[typ]})
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].Type < usage[j].Type })
	return usage, nil
}

// TypeStats summarizes the fit of an obs_seq.final table per observation
// type: root-mean-square error, mean bias, and total spread
// sqrt(mean(prior_ensemble_spread² + obs_err_var)). TotalSpread is zero
// when the table has no spread column.
type TypeStats struct {
	Type        string
	Count       int
	RMSE        float64
	MeanBias    float64
	TotalSpread float64
}

// SummaryStats computes per-type fit statistics, sorted by type name. It
// needs the derived bias and squared-error columns, so it only works on
// tables built from files with a prior ensemble mean.
func (t *Table) SummaryStats() ([]TypeStats, error) {
	if !t.HasBias {
		return nil, &ConfigError{Msg: "summary statistics need a prior ensemble mean column"}
	}
	spreadIdx, hasSpread := t.CopyIndex(priorSpreadColumn)

	type acc struct {
		n                        int
		sqErr, bias, spreadPlusV float64
	}
	byType := make(map[string]*acc)
	for _, rec := range t.Records {
		a := byType[rec.Type]
		if a == nil {
			a = &acc{}
			byType[rec.Type] = a
		}
		a.n++
		a.sqErr += rec.SqErr
		a.bias += rec.Bias
		if hasSpread {
			sd := rec.Copies[spreadIdx]
			a.spreadPlusV += sd*sd + rec.ObsErrVar
		}
	}

	stats := make([]TypeStats, 0, len(byType))
	for typ, a := range byType {
		s := TypeStats{
			Type:     typ,
			Count:    a.n,
			RMSE:     math.Sqrt(a.sqErr / float64(a.n)),
			MeanBias: a.bias / float64(a.n),
		}
		if hasSpread {
			s.TotalSpread = math.Sqrt(a.spreadPlusV / float64(a.n))
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Type < stats[j].Type })
	return stats, nil
}
