// Package anomaly flags points of a series that sit far from the bulk of its values.
package anomaly

import (
	"errors"
	"fmt"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

var ErrUnknownDetector = errors.New("unknown anomaly detector")

const (
	DefaultZThreshold  = 3.0
	DefaultLowerPerc   = 0.25
	DefaultUpperPerc   = 0.75
	DefaultTukeyFactor = 1.5
)

// Point is a single flagged observation
type Point struct {
	T     time.Time `json:"timestamp"`
	Value float64   `json:"value"`
	Score float64   `json:"score"`
}

// Result is the anomaly count along with every flagged row
type Result struct {
	Count     int     `json:"count"`
	Anomalies []Point `json:"anomalies"`
}

// Detector flags anomalous points of a series
type Detector interface {
	Detect(td *timedataset.TimeDataset) (*Result, error)
}

// Options selects and configures a detector
type Options struct {
	Method      string  `json:"method" yaml:"method"`
	ZThreshold  float64 `json:"z_threshold" yaml:"z_threshold"`
	LowerPerc   float64 `json:"lower_percentile" yaml:"lower_percentile"`
	UpperPerc   float64 `json:"upper_percentile" yaml:"upper_percentile"`
	TukeyFactor float64 `json:"tukey_factor" yaml:"tukey_factor"`
	// Detrend scores z-scores on the residual of a linear fit
	Detrend bool `json:"detrend" yaml:"detrend"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Method:      "zscore",
		ZThreshold:  DefaultZThreshold,
		LowerPerc:   DefaultLowerPerc,
		UpperPerc:   DefaultUpperPerc,
		TukeyFactor: DefaultTukeyFactor,
	}
}

// New builds the detector named by the options
func New(opt *Options) (Detector, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	switch opt.Method {
	case "", "zscore":
		return &ZScore{Threshold: opt.ZThreshold, Detrend: opt.Detrend}, nil
	case "tukey", "iqr":
		return &Tukey{LowerPerc: opt.LowerPerc, UpperPerc: opt.UpperPerc, Factor: opt.TukeyFactor}, nil
	}
	return nil, fmt.Errorf("%q, %w, %w", opt.Method, ErrUnknownDetector, errs.ErrConfiguration)
}

func result(td *timedataset.TimeDataset, idxs []int, scores []float64) *Result {
	res := &Result{Anomalies: make([]Point, 0, len(idxs))}
	for _, i := range idxs {
		res.Anomalies = append(res.Anomalies, Point{T: td.T[i], Value: td.Y[i], Score: scores[i]})
	}
	res.Count = len(res.Anomalies)
	return res
}
