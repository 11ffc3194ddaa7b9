package forecaster

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/neurolytix/go-forecaster/anomaly"
	"github.com/neurolytix/go-forecaster/decomposition"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// TrendSeasonalForecaster forecasts with the trend and seasonality decomposition alone
type TrendSeasonalForecaster struct {
	opt   *Options
	model *decomposition.Model

	fitTrainingData *timedataset.TimeDataset
	residual        []float64
}

func NewTrendSeasonal(opt *Options) (*TrendSeasonalForecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &TrendSeasonalForecaster{opt: opt}, nil
}

func (f *TrendSeasonalForecaster) Method() Method {
	return TrendSeasonal
}

// Fit fits the decomposition. With outlier options set, points whose residual falls
// outside the Tukey fence are masked and the series refit up to NumPasses times.
func (f *TrendSeasonalForecaster) Fit(td *timedataset.TimeDataset) error {
	clean, err := checkDataset(td)
	if err != nil {
		return err
	}
	model, residual, err := fitSeriesWithOutliers(f.opt, clean)
	if err != nil {
		return err
	}
	f.model = model
	f.residual = residual
	f.fitTrainingData = clean
	return nil
}

func fitSeriesWithOutliers(opt *Options, td *timedataset.TimeDataset) (*decomposition.Model, []float64, error) {
	numPasses := 0
	if opt.OutlierOptions != nil {
		numPasses = opt.OutlierOptions.NumPasses
	}

	y := append([]float64(nil), td.Y...)
	var model *decomposition.Model
	var residual []float64
	for i := 0; i <= numPasses; i++ {
		m, err := decomposition.New(opt.Decomposition)
		if err != nil {
			return nil, nil, err
		}
		if err := m.Fit(td.T, y); err != nil {
			return nil, nil, fmt.Errorf("unable to fit decomposition, %w", err)
		}
		fitted, err := m.PredictInSample(td.T)
		if err != nil {
			return nil, nil, err
		}
		model = m
		residual = make([]float64, len(y))
		for j := range y {
			residual[j] = y[j] - fitted[j]
		}

		if opt.OutlierOptions == nil {
			break
		}
		outlierIdxs := anomaly.DetectOutliers(
			residual,
			opt.OutlierOptions.LowerPercentile,
			opt.OutlierOptions.UpperPercentile,
			opt.OutlierOptions.TukeyFactor,
		)
		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}
		slog.Debug("masking residual outliers", "pass", i, "outliers", len(outlierIdxs))
		for _, idx := range outlierIdxs {
			y[idx] = math.NaN()
		}
	}
	return model, residual, nil
}

func (f *TrendSeasonalForecaster) Predict(horizon int) (*Forecast, error) {
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	if f.model == nil {
		return nil, errs.ErrNotFitted
	}
	p, err := f.model.PredictFuture(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict decomposition, %w", err)
	}
	return rows(TrendSeasonal, p.T, p.Point, p.Lower, p.Upper), nil
}

// Decomposition returns the fitted decomposition model
func (f *TrendSeasonalForecaster) Decomposition() *decomposition.Model {
	return f.model
}

// Residuals returns the training values minus the fitted values. Masked outliers are NaN.
func (f *TrendSeasonalForecaster) Residuals() []float64 {
	return append([]float64(nil), f.residual...)
}

// TrainingData returns the training data used to fit the current forecaster model
func (f *TrendSeasonalForecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}
