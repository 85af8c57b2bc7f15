package obsseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// qcFixture builds a table with a known QC distribution: two passing U-wind
// rows, one failed U-wind row (flag 7), and one failed temperature (flag 2).
func qcFixture(t *testing.T) *Table {
	t.Helper()
	temp := defaultObs(4, 281.5, 2)
	temp.kindCode = "14"
	obs := []fixtureObs{
		defaultObs(1, 3.0, 0),
		defaultObs(2, 4.0, 0),
		defaultObs(3, 5.0, 7),
		temp,
	}
	return parseFixture(t, fixtureFile(testTypes, testCopyNames, obs))
}

func TestSelectByFlag(t *testing.T) {
	table := qcFixture(t)

	t.Run("selects matching rows", func(t *testing.T) {
		passed, err := table.SelectByFlag(0)
		require.NoError(t, err)
		assert.Equal(t, 2, passed.Len())

		failed, err := table.SelectByFlag(7)
		require.NoError(t, err)
		require.Equal(t, 1, failed.Len())
		assert.Equal(t, 3, failed.Records[0].ObsNum)
	})

	t.Run("absent flag is an error", func(t *testing.T) {
		_, err := table.SelectByFlag(5)
		assert.ErrorIs(t, err, ErrFlagNotFound)
	})

	t.Run("missing QC column", func(t *testing.T) {
		names := []string{"observation"}
		o := fixtureObs{
			num: 1, copies: []float64{2.0},
			lon: 10, lat: 10, vert: 500, vcode: 2,
			kindCode: "5", seconds: 0, days: 0, errVar: 1,
		}
		noQC := parseFixture(t, fixtureFile(testTypes, names, []fixtureObs{o}))

		_, err := noQC.SelectByFlag(0)
		assert.ErrorIs(t, err, ErrNoQCColumn)
	})
}

func TestSelectFailed(t *testing.T) {
	table := qcFixture(t)

	failed, err := table.SelectFailed()
	require.NoError(t, err)
	assert.Equal(t, 2, failed.Len())

	t.Run("idempotent", func(t *testing.T) {
		again, err := table.SelectFailed()
		require.NoError(t, err)
		assert.Equal(t, failed.Records, again.Records)

		// Selecting failures from failures changes nothing.
		twice, err := failed.SelectFailed()
		require.NoError(t, err)
		assert.Equal(t, failed.Records, twice.Records)
	})
}

func TestPossibleVsUsed(t *testing.T) {
	table := qcFixture(t)

	usage, err := table.PossibleVsUsed()
	require.NoError(t, err)

	assert.Equal(t, []TypeUsage{
		{Type: "RADIOSONDE_TEMPERATURE", Possible: 1, Used: 0},
		{Type: "RADIOSONDE_U_WIND_COMPONENT", Possible: 3, Used: 2},
	}, usage)

	t.Run("possible equals used plus failed, per type", func(t *testing.T) {
		failed, err := table.SelectFailed()
		require.NoError(t, err)

		failedByType := map[string]int{}
		for _, rec := range failed.Records {
			failedByType[rec.Type]++
		}
		for _, u := range usage {
			assert.Equal(t, u.Possible, u.Used+failedByType[u.Type], "type %s", u.Type)
		}
	})
}

func TestSummaryStats(t *testing.T) {
	t.Run("per-type fit statistics", func(t *testing.T) {
		// observation 3, mean 4, spread 2, obs_err_var 5:
		// bias = 1, sq_err = 1, spread² + var = 9.
		o := defaultObs(1, 3.0, 0)
		o.copies = []float64{3.0, 4.0, 2.0, 0}
		o.errVar = 5.0
		table := parseFixture(t, fixtureFile(testTypes, testCopyNames, []fixtureObs{o}))

		stats, err := table.SummaryStats()
		require.NoError(t, err)
		require.Len(t, stats, 1)

		s := stats[0]
		assert.Equal(t, "RADIOSONDE_U_WIND_COMPONENT", s.Type)
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 1.0, s.RMSE)
		assert.Equal(t, 1.0, s.MeanBias)
		assert.Equal(t, 3.0, s.TotalSpread)
	})

	t.Run("needs the derived bias column", func(t *testing.T) {
		names := []string{"observation", "DART quality control"}
		o := fixtureObs{
			num: 1, copies: []float64{2.0, 0},
			lon: 10, lat: 10, vert: 500, vcode: 2,
			kindCode: "5", seconds: 0, days: 0, errVar: 1,
		}
		table := parseFixture(t, fixtureFile(testTypes, names, []fixtureObs{o}))

		_, err := table.SummaryStats()
		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
	})
}
