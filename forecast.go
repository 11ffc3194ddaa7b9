package forecaster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/neurolytix/go-forecaster/table"
	"github.com/neurolytix/go-forecaster/timedataset"
)

var ErrMalformedForecast = errors.New("malformed forecast table")

const (
	ColumnTimestamp = "timestamp"
	ColumnPoint     = "point"
	ColumnLower     = "lower"
	ColumnUpper     = "upper"
)

// Row is a single forecasted step. Lower and Upper are only meaningful when the
// forecast has an interval.
type Row struct {
	T     time.Time
	Point float64
	Lower float64
	Upper float64
}

// Forecast is exactly horizon rows with strictly increasing timestamps starting one step
// after the last training timestamp.
type Forecast struct {
	Method      Method
	Rows        []Row
	HasInterval bool
}

// Len returns the number of forecasted steps
func (f *Forecast) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Series returns the point forecast as a time dataset
func (f *Forecast) Series() *timedataset.TimeDataset {
	td := &timedataset.TimeDataset{
		T: make([]time.Time, f.Len()),
		Y: make([]float64, f.Len()),
	}
	for i, r := range f.Rows {
		td.T[i] = r.T
		td.Y[i] = r.Point
	}
	return td
}

// Header returns the table columns written for this forecast
func (f *Forecast) Header() []string {
	if f.HasInterval {
		return []string{ColumnTimestamp, ColumnPoint, ColumnLower, ColumnUpper}
	}
	return []string{ColumnTimestamp, ColumnPoint}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes the forecast as a table. Forecasts without an interval omit the
// lower and upper columns.
func (f *Forecast) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header()); err != nil {
		return err
	}
	for _, r := range f.Rows {
		record := []string{r.T.UTC().Format(time.RFC3339Nano), formatFloat(r.Point)}
		if f.HasInterval {
			record = append(record, formatFloat(r.Lower), formatFloat(r.Upper))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The interval columns are optional.
func ReadCSV(r io.Reader, method Method) (*Forecast, error) {
	tbl, err := table.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	tIdx, tOk := tbl.ColumnIndex(ColumnTimestamp)
	pIdx, pOk := tbl.ColumnIndex(ColumnPoint)
	if !tOk || !pOk {
		return nil, fmt.Errorf("missing %s or %s column, %w", ColumnTimestamp, ColumnPoint, ErrMalformedForecast)
	}
	lIdx, lOk := tbl.ColumnIndex(ColumnLower)
	uIdx, uOk := tbl.ColumnIndex(ColumnUpper)

	f := &Forecast{
		Method:      method,
		Rows:        make([]Row, 0, tbl.Len()),
		HasInterval: lOk && uOk,
	}
	for i := 0; i < tbl.Len(); i++ {
		t, ok := table.ParseTime(tbl.Cell(i, tIdx))
		if !ok {
			return nil, fmt.Errorf("row %d timestamp %q, %w", i, tbl.Cell(i, tIdx), ErrMalformedForecast)
		}
		row := Row{T: t}
		var err error
		if row.Point, err = strconv.ParseFloat(tbl.Cell(i, pIdx), 64); err != nil {
			return nil, fmt.Errorf("row %d, %w, %w", i, err, ErrMalformedForecast)
		}
		if f.HasInterval {
			if row.Lower, err = strconv.ParseFloat(tbl.Cell(i, lIdx), 64); err != nil {
				return nil, fmt.Errorf("row %d, %w, %w", i, err, ErrMalformedForecast)
			}
			if row.Upper, err = strconv.ParseFloat(tbl.Cell(i, uIdx), 64); err != nil {
				return nil, fmt.Errorf("row %d, %w, %w", i, err, ErrMalformedForecast)
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

type rowJSON struct {
	T     time.Time `json:"timestamp"`
	Point float64   `json:"point"`
	Lower *float64  `json:"lower,omitempty"`
	Upper *float64  `json:"upper,omitempty"`
}

type forecastJSON struct {
	Method Method    `json:"method"`
	Rows   []rowJSON `json:"rows"`
}

func (f Forecast) MarshalJSON() ([]byte, error) {
	out := forecastJSON{Method: f.Method, Rows: make([]rowJSON, len(f.Rows))}
	for i, r := range f.Rows {
		out.Rows[i] = rowJSON{T: r.T, Point: r.Point}
		if f.HasInterval {
			lower, upper := r.Lower, r.Upper
			out.Rows[i].Lower = &lower
			out.Rows[i].Upper = &upper
		}
	}
	return json.Marshal(out)
}

func (f *Forecast) UnmarshalJSON(data []byte) error {
	var in forecastJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.Method = in.Method
	f.Rows = make([]Row, len(in.Rows))
	f.HasInterval = len(in.Rows) > 0
	for i, r := range in.Rows {
		f.Rows[i] = Row{T: r.T, Point: r.Point}
		if r.Lower == nil || r.Upper == nil {
			f.HasInterval = false
			continue
		}
		f.Rows[i].Lower, f.Rows[i].Upper = *r.Lower, *r.Upper
	}
	return nil
}

// rows assembles a forecast once every component has been predicted
func rows(method Method, t []time.Time, point, lower, upper []float64) *Forecast {
	f := &Forecast{
		Method:      method,
		Rows:        make([]Row, len(t)),
		HasInterval: lower != nil && upper != nil,
	}
	for i := range t {
		f.Rows[i] = Row{T: t[i], Point: point[i]}
		if f.HasInterval {
			f.Rows[i].Lower = lower[i]
			f.Rows[i].Upper = upper[i]
		}
	}
	return f
}
