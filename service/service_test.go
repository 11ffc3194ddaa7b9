package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/forecaststore"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/timedataset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeLoader struct {
	series map[string]*timedataset.TimeDataset
	calls  int
}

func (l *fakeLoader) LoadSeries(ctx context.Context, datasetID, target string) (*timedataset.TimeDataset, error) {
	l.calls++
	td, ok := l.series[datasetID+"/"+target]
	if !ok {
		return nil, fmt.Errorf("dataset %q, %w", datasetID, errs.ErrDatasetNotFound)
	}
	return td.Copy(), nil
}

type failingNotifier struct{}

func (failingNotifier) Notify(ctx context.Context, alert Alert) error {
	return errors.New("smtp unavailable")
}

func linearSeries(t *testing.T, n int) *timedataset.TimeDataset {
	ts := timedataset.GenerateTFrom(day0, n, 24*time.Hour)
	td, err := timedataset.NewUnivariateDataset(ts, timedataset.GenerateLinearY(n, 1, 1))
	require.Nil(t, err)
	return td
}

func spikeSeries(t *testing.T) *timedataset.TimeDataset {
	ts := timedataset.GenerateTFrom(day0, 50, 24*time.Hour)
	y := timedataset.GenerateConstY(50, 10).SetAt(100, 20)
	td, err := timedataset.NewUnivariateDataset(ts, y)
	require.Nil(t, err)
	return td
}

func setupService(t *testing.T) (*Service, *fakeLoader, *forecaststore.FileStore, *metrics.Metrics, *MemoryNotifier) {
	loader := &fakeLoader{series: map[string]*timedataset.TimeDataset{
		"sales/units": linearSeries(t, 100),
		"sensor/temp": spikeSeries(t),
	}}

	store, err := forecaststore.NewFileStore(t.TempDir())
	require.Nil(t, err)
	m := metrics.New(prometheus.NewRegistry())
	notifier := NewMemoryNotifier(10)

	opt := NewDefaultOptions()
	opt.DefaultMethod = forecaster.TrendSeasonal
	opt.DefaultHorizon = 5
	opt.Metrics = m
	opt.Notifier = notifier
	svc, err := New(loader, store, opt)
	require.Nil(t, err)
	return svc, loader, store, m, notifier
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	opt := NewDefaultOptions()
	opt.DefaultMethod = forecaster.Method(42)
	_, err = New(&fakeLoader{}, nil, opt)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	opt = NewDefaultOptions()
	opt.Anomaly.Method = "isolation_forest"
	_, err = New(&fakeLoader{}, nil, opt)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestForecast(t *testing.T) {
	svc, _, store, m, _ := setupService(t)
	ctx := context.Background()

	res, err := svc.Forecast(ctx, Request{DatasetID: "sales", Column: "units"})
	require.Nil(t, err)
	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.RunID)
	require.Equal(t, 5, res.Forecast.Len())
	assert.Equal(t, forecaster.TrendSeasonal, res.Forecast.Method)
	last := day0.AddDate(0, 0, 99)
	for i, r := range res.Forecast.Rows {
		assert.Equal(t, last.AddDate(0, 0, i+1), r.T)
		assert.InDelta(t, float64(101+i), r.Point, 1e-2)
	}

	stored, err := store.Load(ctx, "sales", forecaster.TrendSeasonal)
	require.Nil(t, err)
	assert.Equal(t, res.Forecast.Len(), stored.Len())

	res2, err := svc.Forecast(ctx, Request{DatasetID: "sales", Column: "units", Method: "prophet", Horizon: 3})
	require.Nil(t, err)
	assert.True(t, res2.Cached)
	assert.Equal(t, 3, res2.Forecast.Len())
	assert.NotEqual(t, res.RunID, res2.RunID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ForecastsTotal.WithLabelValues("trend-seasonal")))
}

func TestForecastErrors(t *testing.T) {
	testData := map[string]struct {
		req Request
		err error
	}{
		"unknown method":   {req: Request{DatasetID: "sales", Column: "units", Method: "arima"}, err: errs.ErrConfiguration},
		"negative horizon": {req: Request{DatasetID: "sales", Column: "units", Horizon: -1}, err: errs.ErrConfiguration},
		"missing dataset":  {req: Request{DatasetID: "inventory", Column: "units"}, err: errs.ErrDatasetNotFound},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			svc, _, _, _, _ := setupService(t)
			_, err := svc.Forecast(context.Background(), td.req)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestForecastErrorMetric(t *testing.T) {
	svc, _, _, m, _ := setupService(t)
	_, err := svc.Forecast(context.Background(), Request{DatasetID: "inventory", Column: "units"})
	require.NotNil(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastErrors.WithLabelValues("trend-seasonal")))
}

func TestCompare(t *testing.T) {
	svc, _, store, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Compare(ctx, "sales", "units")
	assert.ErrorIs(t, err, ErrNoForecasts)

	// candidates over the last three training days
	exact := &forecaster.Forecast{Method: forecaster.TrendSeasonal}
	off := &forecaster.Forecast{Method: forecaster.Ensemble}
	for i := 97; i < 100; i++ {
		ts := day0.AddDate(0, 0, i)
		exact.Rows = append(exact.Rows, forecaster.Row{T: ts, Point: float64(i + 1)})
		off.Rows = append(off.Rows, forecaster.Row{T: ts, Point: float64(i + 3)})
	}
	require.Nil(t, store.Save(ctx, "sales", exact))
	require.Nil(t, store.Save(ctx, "sales", off))

	cmp, err := svc.Compare(ctx, "sales", "units")
	require.Nil(t, err)
	assert.Equal(t, []string{"trend-seasonal", "ensemble"}, cmp.Ranking)
	assert.InDelta(t, 0.0, cmp.Metrics["trend-seasonal"].RMSE, 1e-9)
	assert.InDelta(t, 2.0, cmp.Metrics["ensemble"].MAE, 1e-9)

	_, err = svc.Compare(ctx, "inventory", "units")
	assert.ErrorIs(t, err, errs.ErrDatasetNotFound)
}

func TestDetect(t *testing.T) {
	svc, _, _, m, notifier := setupService(t)
	ctx := context.Background()

	res, err := svc.Detect(ctx, "sensor", "temp", "")
	require.Nil(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, day0.AddDate(0, 0, 20), res.Anomalies[0].T)
	assert.Empty(t, notifier.Recent(0))

	res, err = svc.Detect(ctx, "sensor", "temp", "ops@example.com")
	require.Nil(t, err)
	assert.Equal(t, 1, res.Count)
	alerts := notifier.Recent(0)
	require.Len(t, alerts, 1)
	assert.Equal(t, "ops@example.com", alerts[0].Address)
	assert.Equal(t, "Neurolytix Anomaly Alert: sensor", alerts[0].Subject)
	assert.Contains(t, alerts[0].Body, "2024-03-21T00:00:00Z")

	res, err = svc.Detect(ctx, "sales", "units", "ops@example.com")
	require.Nil(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Len(t, notifier.Recent(0), 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("sensor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsSent))
}

func TestDetectNotifierError(t *testing.T) {
	opt := NewDefaultOptions()
	opt.Notifier = failingNotifier{}
	svc, err := New(&fakeLoader{series: map[string]*timedataset.TimeDataset{"sensor/temp": spikeSeries(t)}}, nil, opt)
	require.Nil(t, err)

	_, err = svc.Detect(context.Background(), "sensor", "temp", "ops@example.com")
	assert.NotNil(t, err)
}

func TestDataFingerprint(t *testing.T) {
	a := linearSeries(t, 10)
	b := linearSeries(t, 10)
	assert.Equal(t, DataFingerprint(a), DataFingerprint(b))

	b.Y[3] += 1e-9
	assert.NotEqual(t, DataFingerprint(a), DataFingerprint(b))
	assert.Len(t, DataFingerprint(a), 16)
}

func TestMemoryNotifier(t *testing.T) {
	n := NewMemoryNotifier(2)
	for i := 0; i < 3; i++ {
		require.Nil(t, n.Notify(context.Background(), Alert{ID: fmt.Sprint(i)}))
	}
	recent := n.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].ID)
	assert.Equal(t, "1", recent[1].ID)
	assert.Len(t, n.Recent(1), 1)
}
