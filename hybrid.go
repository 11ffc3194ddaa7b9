package forecaster

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/neurolytix/go-forecaster/decomposition"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/sequence"
	"github.com/neurolytix/go-forecaster/timedataset"
	"gonum.org/v1/gonum/stat"
)

// HybridForecaster adds a recurrent correction learned on the decomposition residual to
// the decomposition forecast.
type HybridForecaster struct {
	opt *Options

	trend       *decomposition.Model
	residual    *sequence.Model
	residualStd float64
}

func NewHybrid(opt *Options) (*HybridForecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &HybridForecaster{opt: opt}, nil
}

func (f *HybridForecaster) Method() Method {
	return Hybrid
}

// Fit fits the decomposition, then the sequence model on its in-sample residual. A
// residual too short to train on leaves the correction at zero.
func (f *HybridForecaster) Fit(td *timedataset.TimeDataset) error {
	clean, err := checkDataset(td)
	if err != nil {
		return err
	}
	trend, residual, err := fitSeriesWithOutliers(f.opt, clean)
	if err != nil {
		return err
	}

	residualStd := stat.PopStdDev(dropNaN(residual), nil)

	seq, err := sequence.New(f.opt.Sequence)
	if err != nil {
		return err
	}
	if err := seq.Fit(residual); err != nil {
		return fmt.Errorf("unable to fit residual sequence model, %w", err)
	}
	if seq.Degenerate() {
		slog.Warn("hybrid residual correction disabled",
			"reason", "insufficient_history",
			"observations", clean.Len(),
		)
	}

	f.trend = trend
	f.residual = seq
	f.residualStd = residualStd
	return nil
}

// Predict sums the decomposition and residual paths. The decomposition interval is
// widened by the z-scaled residual standard deviation on each side.
func (f *HybridForecaster) Predict(horizon int) (*Forecast, error) {
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	if f.trend == nil || f.residual == nil {
		return nil, errs.ErrNotFitted
	}
	p, err := f.trend.PredictFuture(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict decomposition, %w", err)
	}
	correction, err := f.residual.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict residual, %w", err)
	}

	widen := f.opt.zscore() * f.residualStd
	point := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		point[i] = p.Point[i] + correction[i]
		lower[i] = p.Lower[i] - widen
		upper[i] = p.Upper[i] + widen
	}
	return rows(Hybrid, p.T, point, lower, upper), nil
}

// ResidualStd returns the population standard deviation of the decomposition residual
func (f *HybridForecaster) ResidualStd() float64 {
	return f.residualStd
}

// Decomposition returns the fitted decomposition model
func (f *HybridForecaster) Decomposition() *decomposition.Model {
	return f.trend
}

// Residual returns the fitted residual sequence model
func (f *HybridForecaster) Residual() *sequence.Model {
	return f.residual
}

func dropNaN(y []float64) []float64 {
	res := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			res = append(res, v)
		}
	}
	return res
}
