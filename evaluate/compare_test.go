package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func mustDataset(t *testing.T, ts []time.Time, y []float64) *timedataset.TimeDataset {
	t.Helper()
	ds, err := timedataset.NewUnivariateDataset(ts, y)
	require.NoError(t, err)
	return ds
}

func TestReindex(t *testing.T) {
	forecast := mustDataset(t,
		[]time.Time{day(2), day(4)},
		[]float64{20, 40},
	)

	aligned, matched := Reindex(forecast, []time.Time{day(1), day(2), day(3), day(4), day(5)})
	assert.Equal(t, 2, matched)
	assert.True(t, math.IsNaN(aligned[0]))
	assert.Equal(t, []float64{20, 20, 40, 40}, aligned[1:])
}

func TestCompare(t *testing.T) {
	actual := mustDataset(t,
		[]time.Time{day(1), day(2), day(3)},
		[]float64{10, 20, 30},
	)

	testData := map[string]struct {
		forecasts map[string]*timedataset.TimeDataset
		expected  map[string]Metrics
		err       error
	}{
		"perfect and offset": {
			forecasts: map[string]*timedataset.TimeDataset{
				"hybrid": mustDataset(t, []time.Time{day(1), day(2), day(3)}, []float64{10, 20, 30}),
				"lstm":   mustDataset(t, []time.Time{day(1), day(2), day(3)}, []float64{11, 21, 31}),
			},
			expected: map[string]Metrics{
				"hybrid": {MAE: 0, MSE: 0, RMSE: 0, MAPE: 0, R2: 1, N: 3, Matched: 3},
				"lstm": {
					MAE: 1, MSE: 1, RMSE: 1,
					MAPE: (0.1 + 0.05 + 1.0/30.0) / 3.0,
					R2:   0.985, N: 3, Matched: 3,
				},
			},
		},
		"forward filled gap": {
			forecasts: map[string]*timedataset.TimeDataset{
				"prophet": mustDataset(t, []time.Time{day(1), day(3)}, []float64{10, 30}),
			},
			expected: map[string]Metrics{
				"prophet": {
					MAE: 10.0 / 3.0, MSE: 100.0 / 3.0, RMSE: math.Sqrt(100.0 / 3.0),
					MAPE: 0.5 / 3.0, R2: 0.5, N: 3, Matched: 2,
				},
			},
		},
		"no overlap": {
			forecasts: map[string]*timedataset.TimeDataset{
				"prophet": mustDataset(t, []time.Time{day(10), day(11)}, []float64{1, 2}),
			},
			err: errs.ErrEmptyOverlap,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Compare(td.forecasts, actual)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			require.Len(t, res, len(td.expected))
			for name, exp := range td.expected {
				got := res[name]
				assert.InDelta(t, exp.MAE, got.MAE, 1e-9, name)
				assert.InDelta(t, exp.MSE, got.MSE, 1e-9, name)
				assert.InDelta(t, exp.RMSE, got.RMSE, 1e-9, name)
				assert.InDelta(t, exp.MAPE, got.MAPE, 1e-9, name)
				assert.InDelta(t, exp.R2, got.R2, 1e-9, name)
				assert.Equal(t, exp.N, got.N, name)
				assert.Equal(t, exp.Matched, got.Matched, name)
			}
		})
	}
}

func TestRank(t *testing.T) {
	ranked := Rank(map[string]Metrics{
		"a": {RMSE: 3, MAE: 1},
		"b": {RMSE: 1, MAE: 5},
		"c": {RMSE: 1, MAE: 2},
	})
	assert.Equal(t, []string{"c", "b", "a"}, ranked)
}
