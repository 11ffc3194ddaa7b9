package forecaster

import (
	"fmt"
	"sort"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// EnsembleForecaster blends independently fit decomposition and sequence forecasts by
// step index. The weights are used as given, so weights not summing to one rescale the
// output. No interval is produced.
type EnsembleForecaster struct {
	opt     *Options
	weights map[string]float64
	members map[string]Forecaster
	fitted  bool
}

func NewEnsemble(opt *Options) (*EnsembleForecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	weights, err := opt.weights()
	if err != nil {
		return nil, err
	}

	trend, err := NewTrendSeasonal(opt)
	if err != nil {
		return nil, err
	}
	seq, err := NewSequence(opt)
	if err != nil {
		return nil, err
	}
	return &EnsembleForecaster{
		opt:     opt,
		weights: weights,
		members: map[string]Forecaster{
			WeightDecomposition: trend,
			WeightSequence:      seq,
		},
	}, nil
}

func (f *EnsembleForecaster) Method() Method {
	return Ensemble
}

// Fit fits every member directly on the series
func (f *EnsembleForecaster) Fit(td *timedataset.TimeDataset) error {
	f.fitted = false
	for _, name := range f.names() {
		if err := f.members[name].Fit(td); err != nil {
			return fmt.Errorf("unable to fit ensemble member %s, %w", name, err)
		}
	}
	f.fitted = true
	return nil
}

func (f *EnsembleForecaster) Predict(horizon int) (*Forecast, error) {
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	if !f.fitted {
		return nil, errs.ErrNotFitted
	}

	point := make([]float64, horizon)
	var first *Forecast
	for _, name := range f.names() {
		res, err := f.members[name].Predict(horizon)
		if err != nil {
			return nil, fmt.Errorf("unable to predict ensemble member %s, %w", name, err)
		}
		if res.Len() != horizon {
			return nil, fmt.Errorf("member %s returned %d rows for horizon %d, %w", name, res.Len(), horizon, errs.ErrConfiguration)
		}
		w := f.weights[name]
		for i, r := range res.Rows {
			point[i] += w * r.Point
		}
		if first == nil {
			first = res
		}
	}

	t := make([]time.Time, horizon)
	for i, r := range first.Rows {
		t[i] = r.T
	}
	return rows(Ensemble, t, point, nil, nil), nil
}

// Weights returns the resolved member weights
func (f *EnsembleForecaster) Weights() map[string]float64 {
	res := make(map[string]float64, len(f.weights))
	for k, v := range f.weights {
		res[k] = v
	}
	return res
}

// Member returns the named member forecaster
func (f *EnsembleForecaster) Member(name string) (Forecaster, bool) {
	m, exists := f.members[name]
	return m, exists
}

func (f *EnsembleForecaster) names() []string {
	names := make([]string, 0, len(f.members))
	for name := range f.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
