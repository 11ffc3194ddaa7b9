package evaluate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// Metrics compares one candidate forecast with the realized series
type Metrics struct {
	MAE  float64 `json:"mae"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`

	// N is the number of aligned points scored
	N int `json:"n"`
	// Matched is the number of actual timestamps with an exact forecast timestamp
	Matched int `json:"matched"`
}

// Reindex places the forecast onto the actual timestamps. Exact timestamp matches take
// the forecast value and gaps after a match carry the last matched value forward;
// positions before the first match are NaN. The number of exact matches is returned.
func Reindex(forecast *timedataset.TimeDataset, actualT []time.Time) ([]float64, int) {
	idx := forecast.Index()

	res := make([]float64, len(actualT))
	last := math.NaN()
	var matched int
	for i, t := range actualT {
		if j, exists := idx[t.UnixNano()]; exists && !math.IsNaN(forecast.Y[j]) {
			last = forecast.Y[j]
			matched++
		}
		res[i] = last
	}
	return res, matched
}

// Score computes the metrics of a single candidate against the actual series
func Score(forecast, actual *timedataset.TimeDataset) (Metrics, error) {
	if forecast.Len() == 0 || actual.Len() == 0 {
		return Metrics{}, errs.ErrEmptyOverlap
	}

	aligned, matched := Reindex(forecast, actual.T)
	if matched == 0 {
		return Metrics{}, errs.ErrEmptyOverlap
	}

	m := Metrics{Matched: matched}
	for _, v := range aligned {
		if !math.IsNaN(v) {
			m.N++
		}
	}

	var err error
	if m.MAE, err = MAE(aligned, actual.Y); err != nil {
		return Metrics{}, err
	}
	if m.MSE, err = MSE(aligned, actual.Y); err != nil {
		return Metrics{}, err
	}
	m.RMSE = math.Sqrt(m.MSE)
	if m.MAPE, err = MAPE(aligned, actual.Y); err != nil {
		return Metrics{}, err
	}
	if m.R2, err = RSquared(aligned, actual.Y); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// Compare scores every named candidate forecast against the actual series. It fails if
// any candidate shares no timestamps with the actual series.
func Compare(forecasts map[string]*timedataset.TimeDataset, actual *timedataset.TimeDataset) (map[string]Metrics, error) {
	res := make(map[string]Metrics, len(forecasts))
	for name, forecast := range forecasts {
		m, err := Score(forecast, actual)
		if err != nil {
			return nil, fmt.Errorf("candidate %q, %w", name, err)
		}
		res[name] = m
	}
	return res, nil
}

// Rank orders candidate names from best to worst by RMSE, then MAE, then name
func Rank(metrics map[string]Metrics) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := metrics[names[i]], metrics[names[j]]
		if a.RMSE != b.RMSE {
			return a.RMSE < b.RMSE
		}
		if a.MAE != b.MAE {
			return a.MAE < b.MAE
		}
		return names[i] < names[j]
	})
	return names
}
