package decomposition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/evaluate"
	"github.com/neurolytix/go-forecaster/event"
	"github.com/neurolytix/go-forecaster/feature"
)

var ErrFeatureMismatch = errors.New("snapshot weights do not match generated features")

// FeatureWeight is a fitted coefficient and the labels of the feature it applies to
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

// Snapshot is the serializable state of a fitted decomposition. Coefficients apply to
// the target divided by YScale.
type Snapshot struct {
	Options *Options `json:"options"`

	TrainStart time.Time     `json:"train_start"`
	TrainEnd   time.Time     `json:"train_end"`
	Freq       time.Duration `json:"freq"`
	YScale     float64       `json:"y_scale"`

	Changepoints []feature.Changepoint `json:"changepoints"`
	Seasonal     []seasonal            `json:"seasonal"`
	Holidays     []string              `json:"holidays,omitempty"`
	Weekend      bool                  `json:"weekend,omitempty"`

	Intercept float64         `json:"intercept"`
	Weights   []FeatureWeight `json:"weights"`

	// residual spread and trend uncertainty in original units
	Sigma     float64 `json:"sigma"`
	DeltaMean float64 `json:"delta_mean"`
	N         int     `json:"n"`
	SMean     float64 `json:"s_mean"`
	SVar      float64 `json:"s_var"`

	Scores *evaluate.Scores `json:"scores,omitempty"`
}

// Model returns a copy of the fitted state which can be serialized and restored with
// NewFromSnapshot.
func (m *Model) Model() (*Snapshot, error) {
	if m == nil {
		return nil, ErrUninitializedModel
	}
	if m.state == nil {
		return nil, errs.ErrNotFitted
	}
	s := *m.state
	opt := *m.state.Options
	s.Options = &opt
	s.Changepoints = append([]feature.Changepoint(nil), m.state.Changepoints...)
	s.Seasonal = append([]seasonal(nil), m.state.Seasonal...)
	s.Holidays = append([]string(nil), m.state.Holidays...)
	s.Weights = make([]FeatureWeight, len(m.state.Weights))
	for i, w := range m.state.Weights {
		labels := make(map[string]string, len(w.Labels))
		for k, v := range w.Labels {
			labels[k] = v
		}
		s.Weights[i] = FeatureWeight{Labels: labels, Type: w.Type, Value: w.Value}
	}
	if m.state.Scores != nil {
		scores := *m.state.Scores
		s.Scores = &scores
	}
	return &s, nil
}

// NewFromSnapshot restores a fitted decomposition. The stored weights must line up with
// the features the snapshot generates.
func NewFromSnapshot(s *Snapshot) (*Model, error) {
	if s == nil {
		return nil, ErrUninitializedModel
	}
	opt, err := s.Options.Validate()
	if err != nil {
		return nil, err
	}
	if s.YScale == 0 || !s.TrainEnd.After(s.TrainStart) || s.Freq <= 0 {
		return nil, fmt.Errorf("invalid training window, %w", errs.ErrConfiguration)
	}

	labels := s.features([]time.Time{s.TrainEnd}).Labels().Labels()
	if len(labels) != len(s.Weights) {
		return nil, fmt.Errorf("%d weights for %d features, %w", len(s.Weights), len(labels), ErrFeatureMismatch)
	}
	for i, f := range labels {
		w := s.Weights[i]
		decoded, err := feature.Decode(w.Type, w.Labels)
		if err != nil {
			return nil, err
		}
		if decoded.String() != f.String() {
			return nil, fmt.Errorf("weight %d is %s expected %s, %w", i, decoded, f, ErrFeatureMismatch)
		}
	}

	state := *s
	state.Options = opt
	return &Model{opt: opt, state: &state}, nil
}

func (s *Snapshot) scale(t time.Time) float64 {
	return t.Sub(s.TrainStart).Seconds() / s.TrainEnd.Sub(s.TrainStart).Seconds()
}

func (s *Snapshot) scaledTime(t []time.Time) []float64 {
	res := make([]float64, len(t))
	for i, tPnt := range t {
		res[i] = s.scale(tPnt)
	}
	return res
}

// features generates the regressors at t in a fixed order: linear growth, changepoint
// hinges, fourier terms, holidays then the weekend shift.
func (s *Snapshot) features(t []time.Time) *feature.Set {
	set := feature.NewSet()
	scaledT := s.scaledTime(t)

	linear := feature.Linear()
	set.Set(linear, linear.Generate(scaledT))

	for _, chpt := range s.Changepoints {
		set.Set(feature.NewChangepoint(chpt.Name, chpt.T), chpt.Generate(scaledT, s.scale(chpt.T)))
	}

	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = float64(tPnt.UnixNano()) / 1e9
	}
	for _, comp := range s.Seasonal {
		set.Update(feature.FourierSet(comp.Name, comp.Period, comp.Orders, epoch))
	}

	if len(s.Holidays) > 0 && len(t) > 0 {
		minT, maxT := t[0], t[0]
		for _, tPnt := range t {
			if tPnt.Before(minT) {
				minT = tPnt
			}
			if tPnt.After(maxT) {
				maxT = tPnt
			}
		}
		// widen by a day so a holiday starting before the first sub-daily sample is kept
		start := minT.UTC().Add(-DailyPeriod)
		end := maxT.UTC()
		for _, name := range s.Holidays {
			events, err := event.Named(name, start, end, 0, 0)
			if err != nil {
				continue
			}
			windows := make([]feature.Window, 0, len(events))
			for _, e := range events {
				windows = append(windows, feature.Window{Start: e.Start, End: e.End})
			}
			hol := feature.NewEvent(name)
			set.Set(hol, hol.Generate(t, windows))
		}
	}

	if s.Weekend {
		wk, mask := s.Options.Weekend.weekendFeature(t)
		set.Set(wk, mask)
	}
	return set
}

// predict evaluates the point estimate and its components in original units
func (s *Snapshot) predict(t []time.Time) *Prediction {
	set := s.features(t)
	p := &Prediction{
		T:           append([]time.Time(nil), t...),
		Point:       make([]float64, len(t)),
		Trend:       make([]float64, len(t)),
		Seasonality: make([]float64, len(t)),
		Holidays:    make([]float64, len(t)),
	}
	for i := range t {
		p.Trend[i] = s.Intercept * s.YScale
	}

	for j, f := range set.Labels().Labels() {
		data, _ := set.Get(f)
		w := s.Weights[j].Value * s.YScale
		var dst []float64
		switch f.Type() {
		case feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint:
			dst = p.Trend
		case feature.FeatureTypeSeasonality:
			dst = p.Seasonality
		case feature.FeatureTypeEvent:
			dst = p.Holidays
		default:
			continue
		}
		for i, v := range data {
			dst[i] += w * v
		}
	}

	for i := range t {
		p.Point[i] = p.Trend[i] + p.Seasonality[i] + p.Holidays[i]
	}
	return p
}

// halfWidth is the standard error of a forecast at scaled time st. It combines the
// residual spread, the uncertainty of the fitted slope and, past the training window,
// the typical size of a trend change.
func (s *Snapshot) halfWidth(st float64) float64 {
	variance := s.Sigma * s.Sigma
	if s.N > 0 {
		variance *= 1 + 1/float64(s.N)
		if sxx := s.SVar * float64(s.N); sxx > 0 {
			d := st - s.SMean
			variance += s.Sigma * s.Sigma * d * d / sxx
		}
	}
	drift := s.DeltaMean * math.Max(0, st-1)
	return math.Sqrt(variance + drift*drift)
}
