// Package forecaster fits one of several forecasting methods to a cleaned time series and
// projects it forward as a table of point estimates with optional uncertainty bounds.
package forecaster

import (
	"errors"
	"fmt"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

var ErrEmptyTimeDataset = errors.New("no timedataset or uninitialized")

// Forecaster fits a model to a series and forecasts horizon steps past its end. Predict
// on a fitted forecaster does not modify it and may be called concurrently.
type Forecaster interface {
	Method() Method
	Fit(td *timedataset.TimeDataset) error
	Predict(horizon int) (*Forecast, error)
}

// New creates a fresh, unfitted forecaster for the method. If no options are provided
// a default is used.
func New(method Method, opt *Options) (Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	switch method {
	case TrendSeasonal:
		return NewTrendSeasonal(opt)
	case SequenceResidual:
		return NewSequence(opt)
	case Hybrid:
		return NewHybrid(opt)
	case Ensemble:
		return NewEnsemble(opt)
	}
	return nil, fmt.Errorf("method %s, %w", method, errs.ErrConfiguration)
}

// NewFromSelector parses the selector and creates the matching forecaster
func NewFromSelector(selector string, opt *Options) (Forecaster, error) {
	method, err := ParseMethod(selector)
	if err != nil {
		return nil, err
	}
	return New(method, opt)
}

func checkHorizon(horizon int) error {
	if horizon < 1 {
		return fmt.Errorf("horizon %d must be positive, %w", horizon, errs.ErrConfiguration)
	}
	return nil
}

func checkDataset(td *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
	if td == nil {
		return nil, ErrEmptyTimeDataset
	}
	clean := td.DropNan()
	if clean.Len() == 0 {
		return nil, errs.ErrEmptySeries
	}
	return clean, nil
}
