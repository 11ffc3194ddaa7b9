package sequence

import (
	"fmt"

	"github.com/neurolytix/go-forecaster/errs"
)

const (
	DefaultSequenceLength = 30
	DefaultHiddenSize     = 32
	DefaultEpochs         = 50
	DefaultBatchSize      = 32
	DefaultLearningRate   = 0.001
	DefaultPatience       = 5
	DefaultClipNorm       = 1.0
	DefaultSeed           = 42
)

// Options configures the recurrent residual model
type Options struct {
	// SequenceLength is the number of past values fed to the network per prediction
	SequenceLength int     `json:"sequence_length"`
	HiddenSize     int     `json:"hidden_size"`
	Epochs         int     `json:"epochs"`
	BatchSize      int     `json:"batch_size"`
	LearningRate   float64 `json:"learning_rate"`

	// Patience is the number of epochs without a lower training loss before stopping
	Patience int     `json:"patience"`
	ClipNorm float64 `json:"clip_norm"`
	Seed     uint64  `json:"seed"`
}

func NewDefaultOptions() *Options {
	return &Options{
		SequenceLength: DefaultSequenceLength,
		HiddenSize:     DefaultHiddenSize,
		Epochs:         DefaultEpochs,
		BatchSize:      DefaultBatchSize,
		LearningRate:   DefaultLearningRate,
		Patience:       DefaultPatience,
		ClipNorm:       DefaultClipNorm,
		Seed:           DefaultSeed,
	}
}

// Validate returns the default options when nil and otherwise checks every field
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.SequenceLength < 1 {
		return nil, fmt.Errorf("sequence length %d, %w", o.SequenceLength, errs.ErrConfiguration)
	}
	if o.HiddenSize < 1 {
		return nil, fmt.Errorf("hidden size %d, %w", o.HiddenSize, errs.ErrConfiguration)
	}
	if o.Epochs < 1 || o.BatchSize < 1 {
		return nil, fmt.Errorf("epochs %d and batch size %d must be positive, %w", o.Epochs, o.BatchSize, errs.ErrConfiguration)
	}
	if o.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate %.5f, %w", o.LearningRate, errs.ErrConfiguration)
	}
	if o.Patience < 1 {
		return nil, fmt.Errorf("patience %d, %w", o.Patience, errs.ErrConfiguration)
	}
	if o.ClipNorm < 0 {
		return nil, fmt.Errorf("clip norm %.3f, %w", o.ClipNorm, errs.ErrConfiguration)
	}
	return o, nil
}
