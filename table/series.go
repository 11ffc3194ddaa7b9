package table

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTime parses a timestamp cell. Layouts without a zone are read as UTC and bare
// integers as unix seconds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseValue parses a numeric cell. Missing and non-finite values are rejected.
func ParseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type observation struct {
	t time.Time
	y float64
}

// Series extracts a strictly increasing time series of the target column indexed by the
// time column. Rows with an unparsable timestamp or non-numeric target are dropped, rows
// are stably sorted by time and duplicate timestamps keep the last row.
func (t *Table) Series(timeColumn, targetColumn string) (*timedataset.TimeDataset, error) {
	if t == nil {
		return nil, fmt.Errorf("no table provided, %w", errs.ErrEmptySeries)
	}
	tIdx, exists := t.ColumnIndex(timeColumn)
	if !exists {
		return nil, fmt.Errorf("time column %q, %w", timeColumn, errs.ErrMissingColumn)
	}
	yIdx, exists := t.ColumnIndex(targetColumn)
	if !exists {
		return nil, fmt.Errorf("target column %q, %w", targetColumn, errs.ErrMissingColumn)
	}

	obs := make([]observation, 0, len(t.Rows))
	var dropped int
	for i := range t.Rows {
		ts, ok := ParseTime(t.Cell(i, tIdx))
		if !ok {
			dropped++
			continue
		}
		y, ok := ParseValue(t.Cell(i, yIdx))
		if !ok {
			dropped++
			continue
		}
		obs = append(obs, observation{t: ts, y: y})
	}
	if dropped > 0 {
		slog.Debug("dropped invalid rows", "target", targetColumn, "dropped", dropped, "kept", len(obs))
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("column %q, %w", targetColumn, errs.ErrEmptySeries)
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].t.Before(obs[j].t)
	})

	ts := make([]time.Time, 0, len(obs))
	ys := make([]float64, 0, len(obs))
	for _, o := range obs {
		if n := len(ts); n > 0 && ts[n-1].Equal(o.t) {
			ys[n-1] = o.y
			continue
		}
		ts = append(ts, o.t)
		ys = append(ys, o.y)
	}

	return timedataset.NewUnivariateDataset(ts, ys)
}
