package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/table"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// DefaultLookback bounds how far back an InfluxDB query reaches
const DefaultLookback = 365 * 24 * time.Hour

type InfluxOptions struct {
	URL      string
	Token    string
	Org      string
	Bucket   string
	Lookback time.Duration
}

type point struct {
	t time.Time
	v float64
}

// queryFunc runs a flux query and returns every (time, value) record
type queryFunc func(ctx context.Context, flux string) ([]point, error)

// InfluxLoader reads a dataset as an InfluxDB measurement with one field per column
type InfluxLoader struct {
	client   influxdb2.Client
	bucket   string
	lookback time.Duration
	query    queryFunc
}

func NewInfluxLoader(opt InfluxOptions) *InfluxLoader {
	if opt.Lookback <= 0 {
		opt.Lookback = DefaultLookback
	}
	client := influxdb2.NewClient(opt.URL, opt.Token)
	queryAPI := client.QueryAPI(opt.Org)

	l := &InfluxLoader{
		client:   client,
		bucket:   opt.Bucket,
		lookback: opt.Lookback,
	}
	l.query = func(ctx context.Context, flux string) ([]point, error) {
		result, err := queryAPI.Query(ctx, flux)
		if err != nil {
			return nil, fmt.Errorf("influxdb query failed, %w", err)
		}
		defer result.Close()

		var points []point
		for result.Next() {
			record := result.Record()
			v, ok := toFloat(record.Value())
			if !ok {
				continue
			}
			points = append(points, point{t: record.Time(), v: v})
		}
		if result.Err() != nil {
			return nil, fmt.Errorf("error reading influxdb results, %w", result.Err())
		}
		return points, nil
	}
	return l
}

func (l *InfluxLoader) Close() {
	if l.client != nil {
		l.client.Close()
	}
}

func (l *InfluxLoader) LoadSeries(ctx context.Context, datasetID, target string) (*timedataset.TimeDataset, error) {
	flux := FluxQuery(l.bucket, datasetID, target, l.lookback)
	slog.Debug("querying influxdb", "dataset_id", datasetID, "target", target)

	points, err := l.query(ctx, flux)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("measurement %q field %q, %w", datasetID, target, errs.ErrDatasetNotFound)
	}
	return pointsToSeries(points, target)
}

// pointsToSeries routes query records through the table preprocessor so they get the
// same sorting and duplicate handling as files
func pointsToSeries(points []point, target string) (*timedataset.TimeDataset, error) {
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{
			p.t.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(p.v, 'g', -1, 64),
		}
	}
	tbl := table.New([]string{table.DefaultTimeColumn, target}, rows)
	return tbl.Series(table.DefaultTimeColumn, target)
}

// FluxQuery selects one field of a measurement over the lookback window in time order
func FluxQuery(bucket, measurement, field string, lookback time.Duration) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %s and r._field == %s)
  |> sort(columns: ["_time"], desc: false)`,
		fluxString(bucket), fluxDuration(lookback), fluxString(measurement), fluxString(field))
}

func fluxString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// fluxDuration renders whole seconds, which flux accepts as a duration literal
func fluxDuration(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec < 1 {
		sec = 1
	}
	return strconv.FormatInt(sec, 10) + "s"
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
