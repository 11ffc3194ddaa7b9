package forecaster

import (
	"fmt"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/sequence"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// SequenceForecaster forecasts the raw series with the recurrent model alone. Bounds
// are the point forecast plus or minus the z-scaled one step training error.
type SequenceForecaster struct {
	opt   *Options
	model *sequence.Model
	t     timedataset.TimeSlice
}

func NewSequence(opt *Options) (*SequenceForecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &SequenceForecaster{opt: opt}, nil
}

func (f *SequenceForecaster) Method() Method {
	return SequenceResidual
}

// Fit trains on the raw values. Unlike the residual use inside the hybrid, a series too
// short to train on is an error here.
func (f *SequenceForecaster) Fit(td *timedataset.TimeDataset) error {
	clean, err := checkDataset(td)
	if err != nil {
		return err
	}
	model, err := sequence.New(f.opt.Sequence)
	if err != nil {
		return err
	}
	if clean.Len() < model.MinObservations() {
		return fmt.Errorf("got %d observations need %d, %w", clean.Len(), model.MinObservations(), errs.ErrInsufficientData)
	}
	if err := model.Fit(clean.Y); err != nil {
		return fmt.Errorf("unable to fit sequence model, %w", err)
	}
	f.model = model
	f.t = timedataset.TimeSlice(clean.T)
	return nil
}

func (f *SequenceForecaster) Predict(horizon int) (*Forecast, error) {
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	if f.model == nil {
		return nil, errs.ErrNotFitted
	}
	point, err := f.model.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict sequence, %w", err)
	}

	half := f.opt.zscore() * f.model.TrainRMSE()
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i, p := range point {
		lower[i] = p - half
		upper[i] = p + half
	}
	return rows(SequenceResidual, f.t.Future(horizon), point, lower, upper), nil
}

// Sequence returns the fitted recurrent model
func (f *SequenceForecaster) Sequence() *sequence.Model {
	return f.model
}
