package decomposition

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-json"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWeekend(t *testing.T) {
	// 2023-01-06 is a Friday
	friday := time.Date(2023, 1, 6, 20, 0, 0, 0, time.UTC)
	saturday := friday.Add(12 * time.Hour)
	monday := time.Date(2023, 1, 9, 3, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		opt      WeekendOptions
		t        time.Time
		expected bool
	}{
		"friday no buffer":       {t: friday, expected: false},
		"saturday no buffer":     {t: saturday, expected: true},
		"monday no buffer":       {t: monday, expected: false},
		"friday widened before":  {opt: WeekendOptions{DurBefore: 6 * time.Hour, DurAfter: 6 * time.Hour}, t: friday, expected: true},
		"monday widened after":   {opt: WeekendOptions{DurBefore: 6 * time.Hour, DurAfter: 6 * time.Hour}, t: monday, expected: true},
		"saturday shrunk before": {opt: WeekendOptions{DurBefore: -12 * time.Hour}, t: time.Date(2023, 1, 7, 6, 0, 0, 0, time.UTC), expected: false},
		"saturday after shrink":  {opt: WeekendOptions{DurBefore: -12 * time.Hour}, t: time.Date(2023, 1, 7, 13, 0, 0, 0, time.UTC), expected: true},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.opt.isWeekend(td.t))
		})
	}
}

func TestWeekendTimezoneOverride(t *testing.T) {
	// saturday 02:00 UTC is still friday evening in new york
	tPnt := []time.Time{time.Date(2023, 1, 7, 2, 0, 0, 0, time.UTC)}
	assert.Equal(t, []float64{1}, WeekendOptions{Enabled: true}.mask(tPnt))
	assert.Equal(t, []float64{0}, WeekendOptions{Enabled: true, TimezoneOverride: "America/New_York"}.mask(tPnt))
}

func TestWeekendValidate(t *testing.T) {
	testData := map[string]struct {
		opt WeekendOptions
		err error
	}{
		"disabled ignores fields": {opt: WeekendOptions{DurBefore: 72 * time.Hour}},
		"valid":                   {opt: WeekendOptions{Enabled: true, DurBefore: time.Hour, TimezoneOverride: "UTC"}},
		"buffer too large":        {opt: WeekendOptions{Enabled: true, DurAfter: 25 * time.Hour}, err: errs.ErrConfiguration},
		"unknown timezone":        {opt: WeekendOptions{Enabled: true, TimezoneOverride: "Mars/Olympus"}, err: errs.ErrConfiguration},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.opt.validate()
			if td.err == nil {
				assert.Nil(t, err)
				return
			}
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func weekendSeries(n int) ([]time.Time, []float64) {
	tSeries := timedataset.GenerateTFrom(start, n, 24*time.Hour)
	y := timedataset.GenerateConstY(n, 10.0)
	for i, tPnt := range tSeries {
		if isWeekendDay(tPnt.Weekday()) {
			y[i] += 5.0
		}
	}
	return tSeries, y
}

func TestWeekendRegressor(t *testing.T) {
	tSeries, y := weekendSeries(70)

	opt := NewDefaultOptions()
	opt.WeeklySeasonality = false
	opt.NumChangepoints = 0
	opt.Weekend.Enabled = true
	m, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, m.Fit(tSeries, y))

	p, err := m.PredictFuture(7)
	require.Nil(t, err)
	for i, tPnt := range p.T {
		if isWeekendDay(tPnt.Weekday()) {
			assert.InDelta(t, 15.0, p.Point[i], 0.25)
			assert.InDelta(t, 5.0, p.Holidays[i], 0.25)
			continue
		}
		assert.InDelta(t, 10.0, p.Point[i], 0.25)
		assert.InDelta(t, 0.0, p.Holidays[i], 1e-9)
	}

	snap, err := m.Model()
	require.Nil(t, err)
	assert.True(t, snap.Weekend)

	data, err := json.Marshal(snap)
	require.Nil(t, err)
	var decoded Snapshot
	require.Nil(t, json.Unmarshal(data, &decoded))
	restored, err := NewFromSnapshot(&decoded)
	require.Nil(t, err)
	p2, err := restored.PredictFuture(7)
	require.Nil(t, err)
	assert.InDeltaSlice(t, p.Point, p2.Point, 1e-9)
}

func TestWeekendDroppedWithoutCoverage(t *testing.T) {
	// monday through friday only
	tSeries := timedataset.GenerateTFrom(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), 5, 24*time.Hour)
	y := timedataset.GenerateLinearY(5, 1, 1)

	opt := NewDefaultOptions()
	opt.Weekend.Enabled = true
	m, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, m.Fit(tSeries, y))

	snap, err := m.Model()
	require.Nil(t, err)
	assert.False(t, snap.Weekend)
}
