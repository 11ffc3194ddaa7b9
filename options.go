package forecaster

import (
	"fmt"
	"hash/fnv"

	"github.com/goccy/go-json"
	"github.com/neurolytix/go-forecaster/decomposition"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/sequence"
)

const (
	WeightDecomposition = "decomposition"
	WeightSequence      = "sequence"

	DefaultWeight = 0.5

	// DefaultResidualZscore is the two sided 95% normal quantile
	DefaultResidualZscore = 1.96
)

// OutlierOptions enables repeated trend/seasonal fits that mask residual outliers
// outside a Tukey fence before refitting.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Options configures every forecasting method. Nil sub options use their defaults.
type Options struct {
	Decomposition *decomposition.Options `json:"decomposition,omitempty"`
	Sequence      *sequence.Options      `json:"sequence,omitempty"`

	// Weights blends the ensemble members keyed by WeightDecomposition and
	// WeightSequence. Missing keys default to 0.5 and weights are not normalized.
	Weights map[string]float64 `json:"weights,omitempty"`

	ResidualZscore float64         `json:"residual_zscore"`
	OutlierOptions *OutlierOptions `json:"outlier_options,omitempty"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Decomposition:  decomposition.NewDefaultOptions(),
		Sequence:       sequence.NewDefaultOptions(),
		ResidualZscore: DefaultResidualZscore,
	}
}

// Validate returns the default options when nil and checks the ensemble weights and
// nested options otherwise.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if _, err := o.Decomposition.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decomposition options, %w", err)
	}
	if _, err := o.Sequence.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sequence options, %w", err)
	}
	if _, err := o.weights(); err != nil {
		return nil, err
	}
	if o.ResidualZscore < 0 {
		return nil, fmt.Errorf("residual zscore %.3f, %w", o.ResidualZscore, errs.ErrConfiguration)
	}
	if o.OutlierOptions != nil && o.OutlierOptions.NumPasses < 0 {
		return nil, fmt.Errorf("outlier passes %d, %w", o.OutlierOptions.NumPasses, errs.ErrConfiguration)
	}
	return o, nil
}

func (o *Options) zscore() float64 {
	if o == nil || o.ResidualZscore == 0 {
		return DefaultResidualZscore
	}
	return o.ResidualZscore
}

// weights resolves the ensemble weights filling in defaults for missing members
func (o *Options) weights() (map[string]float64, error) {
	res := map[string]float64{
		WeightDecomposition: DefaultWeight,
		WeightSequence:      DefaultWeight,
	}
	if o == nil {
		return res, nil
	}
	for name, w := range o.Weights {
		if _, exists := res[name]; !exists {
			return nil, fmt.Errorf("unknown ensemble member %q, %w", name, errs.ErrConfiguration)
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight %.3f for %q, %w", w, name, errs.ErrConfiguration)
		}
		res[name] = w
	}
	return res, nil
}

// Fingerprint is a stable hash of the options used to key fitted models
func (o *Options) Fingerprint() (string, error) {
	opt, err := o.Validate()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(opt)
	if err != nil {
		return "", fmt.Errorf("unable to encode options, %w", err)
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
