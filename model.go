package forecaster

import (
	"errors"
	"fmt"

	"github.com/neurolytix/go-forecaster/decomposition"
	"github.com/neurolytix/go-forecaster/errs"
)

var ErrNoOptionsInModel = errors.New("no options set in model")

// Model is a serializable trend/seasonal forecaster. It can be used to initialize a new
// forecaster for immediate predictions skipping the training step.
type Model struct {
	Options       *Options                `json:"options"`
	Decomposition *decomposition.Snapshot `json:"decomposition"`
}

// Model generates a serializable representation of the fit options and decomposition
func (f *TrendSeasonalForecaster) Model() (Model, error) {
	if f.model == nil {
		return Model{}, errs.ErrNotFitted
	}
	snap, err := f.model.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch decomposition model, %w", err)
	}
	return Model{Options: f.opt, Decomposition: snap}, nil
}

// NewFromModel creates a fitted trend/seasonal forecaster from a previous call to Model()
func NewFromModel(model Model) (*TrendSeasonalForecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}
	if model.Decomposition == nil {
		return nil, fmt.Errorf("no decomposition in model, %w", errs.ErrNotFitted)
	}
	d, err := decomposition.NewFromSnapshot(model.Decomposition)
	if err != nil {
		return nil, fmt.Errorf("unable to load from decomposition model, %w", err)
	}
	return &TrendSeasonalForecaster{opt: opt, model: d}, nil
}
