package forecaster

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// rendered as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	lineData := make([][]opts.LineData, len(y))
	for i := 0; i < len(y); i++ {
		lineData[i] = make([]opts.LineData, 0, len(y[i]))
		for j := 0; j < len(y[i]); j++ {
			if math.IsNaN(y[i][j]) {
				lineData[i] = append(lineData[i], opts.LineData{Value: "-"})
				continue
			}
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}
	return line
}

// LineForecast generates an echart line chart of the history followed by the forecasted
// point, lower, and upper values.
func LineForecast(history *timedataset.TimeDataset, fc *Forecast) *charts.Line {
	n := history.Len() + fc.Len()
	t := make([]time.Time, 0, n)
	actual := make([]float64, 0, n)
	point := make([]float64, 0, n)
	upper := make([]float64, 0, n)
	lower := make([]float64, 0, n)

	for i := 0; i < history.Len(); i++ {
		t = append(t, history.T[i])
		actual = append(actual, history.Y[i])
		point = append(point, math.NaN())
		upper = append(upper, math.NaN())
		lower = append(lower, math.NaN())
	}
	for _, r := range fc.Rows {
		t = append(t, r.T)
		actual = append(actual, math.NaN())
		point = append(point, r.Point)
		if fc.HasInterval {
			upper = append(upper, r.Upper)
			lower = append(lower, r.Lower)
			continue
		}
		upper = append(upper, math.NaN())
		lower = append(lower, math.NaN())
	}

	names := []string{"Actual", "Forecast"}
	series := [][]float64{actual, point}
	if fc.HasInterval {
		names = append(names, "Upper", "Lower")
		series = append(series, upper, lower)
	}
	return LineTSeries(fmt.Sprintf("Forecast %s", fc.Method), names, t, series)
}

// PlotForecast uses the Apache Echarts library to render an html page of the history and
// forecast along with any extra component charts.
func PlotForecast(w io.Writer, history *timedataset.TimeDataset, fc *Forecast, extra ...*charts.Line) error {
	if fc == nil {
		return ErrEmptyTimeDataset
	}
	page := components.NewPage()
	page.AddCharts(LineForecast(history, fc))
	for _, c := range extra {
		page.AddCharts(c)
	}
	return page.Render(w)
}
