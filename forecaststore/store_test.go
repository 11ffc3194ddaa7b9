package forecaststore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func sampleForecast(method forecaster.Method, base float64) *forecaster.Forecast {
	fc := &forecaster.Forecast{Method: method, HasInterval: method != forecaster.Ensemble}
	for i := 0; i < 3; i++ {
		row := forecaster.Row{T: day0.AddDate(0, 0, i), Point: base + float64(i)}
		if fc.HasInterval {
			row.Lower, row.Upper = row.Point-1, row.Point+1
		}
		fc.Rows = append(fc.Rows, row)
	}
	return fc
}

func TestParseMethods(t *testing.T) {
	got := parseMethods([]string{"ensemble", "bogus", "trend-seasonal", "z_hybrid", "hybrid"})
	assert.Equal(t, []forecaster.Method{forecaster.TrendSeasonal, forecaster.Hybrid, forecaster.Ensemble}, got)
}

func TestCheckSave(t *testing.T) {
	testData := map[string]struct {
		id  string
		fc  *forecaster.Forecast
		err error
	}{
		"valid":          {id: "sales", fc: sampleForecast(forecaster.Hybrid, 1)},
		"empty id":       {id: "", fc: sampleForecast(forecaster.Hybrid, 1), err: errs.ErrConfiguration},
		"path in id":     {id: "a/b", fc: sampleForecast(forecaster.Hybrid, 1), err: errs.ErrConfiguration},
		"nil forecast":   {id: "sales", err: ErrNoForecast},
		"invalid method": {id: "sales", fc: &forecaster.Forecast{}, err: ErrNoForecast},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := checkSave(td.id, td.fc)
			if td.err == nil {
				assert.Nil(t, err)
				return
			}
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "forecasts")
	store, err := NewFileStore(dir)
	require.Nil(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx, "sales", forecaster.Hybrid)
	assert.ErrorIs(t, err, ErrForecastNotFound)

	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Hybrid, 1)))
	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Ensemble, 5)))
	require.Nil(t, store.Save(ctx, "sales_eu", sampleForecast(forecaster.TrendSeasonal, 5)))

	_, err = os.Stat(filepath.Join(dir, "sales_hybrid.csv"))
	assert.Nil(t, err)

	// a new run replaces the previous table
	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Hybrid, 10)))
	fc, err := store.Load(ctx, "sales", forecaster.Hybrid)
	require.Nil(t, err)
	assert.Equal(t, sampleForecast(forecaster.Hybrid, 10), fc)

	fc, err = store.Load(ctx, "sales", forecaster.Ensemble)
	require.Nil(t, err)
	assert.False(t, fc.HasInterval)
	assert.Equal(t, 3, fc.Len())

	methods, err := store.List(ctx, "sales")
	require.Nil(t, err)
	assert.Equal(t, []forecaster.Method{forecaster.Hybrid, forecaster.Ensemble}, methods)

	all, err := LoadAll(ctx, store, "sales")
	require.Nil(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "hybrid")
	assert.Contains(t, all, "ensemble")

	entries, err := os.ReadDir(dir)
	require.Nil(t, err)
	assert.Len(t, entries, 3)
}
