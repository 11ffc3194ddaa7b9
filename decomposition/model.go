// Package decomposition fits an additive piecewise linear trend plus fourier seasonality
// and holiday regression to a series and projects it forward with uncertainty bounds.
package decomposition

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/evaluate"
	"github.com/neurolytix/go-forecaster/feature"
	"github.com/neurolytix/go-forecaster/linearmodel"
	"github.com/neurolytix/go-forecaster/timedataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrUninitializedModel = errors.New("uninitialized decomposition model")

// noiseScale is the assumed observation noise, in units of the scaled target, used to
// turn prior scales into ridge penalties.
const noiseScale = 0.1

// Model is a trend and seasonality decomposition. A fitted model is read-only and safe
// for concurrent predictions.
type Model struct {
	opt   *Options
	state *Snapshot
}

// New creates a new decomposition with the given options. If none are provided, a default
// is used.
func New(opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Model{opt: opt}, nil
}

// Prediction holds a projection of the decomposition and its components
type Prediction struct {
	T           []time.Time `json:"time"`
	Point       []float64   `json:"point"`
	Lower       []float64   `json:"lower"`
	Upper       []float64   `json:"upper"`
	Trend       []float64   `json:"trend"`
	Seasonality []float64   `json:"seasonality"`
	Holidays    []float64   `json:"holidays"`
}

// Fit estimates the trend, periodic and holiday terms from the series. NaN values are
// ignored. Periodic components with less than two full periods of history, or periods
// shorter than two sampling intervals, are disabled.
func (m *Model) Fit(t []time.Time, y []float64) error {
	if m == nil {
		return ErrUninitializedModel
	}
	if len(y) < 2 {
		return fmt.Errorf("got %d observations, %w", len(y), errs.ErrInsufficientData)
	}
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	td = td.DropNan()
	if td.Len() < 2 {
		return fmt.Errorf("got %d non-NaN observations, %w", td.Len(), errs.ErrInsufficientData)
	}

	tSlice := timedataset.TimeSlice(td.T)
	s := &Snapshot{
		Options:    m.opt,
		TrainStart: tSlice.StartTime(),
		TrainEnd:   tSlice.EndTime(),
		Freq:       tSlice.FreqOrDefault(),
		YScale:     maxAbs(td.Y),
		Holidays:   append([]string(nil), m.opt.Holidays...),
		N:          td.Len(),
	}
	s.Changepoints = placeChangepoints(td.T, m.opt.NumChangepoints, m.opt.ChangepointRange)
	s.Seasonal = enabledSeasonal(m.opt.requested(), s.TrainEnd.Sub(s.TrainStart), s.Freq)
	if m.opt.Weekend.Enabled {
		s.Weekend = m.opt.Weekend.covers(td.T)
		if !s.Weekend {
			slog.Debug("dropping weekend regressor", "reason", "history lacks weekend or weekday points")
		}
	}

	x := s.features(td.T)
	labels := x.Labels().Labels()

	penalties := make([]float64, len(labels))
	for i, f := range labels {
		penalties[i] = m.opt.penalty(f.Type())
	}
	ridge, err := linearmodel.NewRidgeRegression(&linearmodel.RidgeOptions{
		FitIntercept: true,
		Penalties:    penalties,
	})
	if err != nil {
		return err
	}

	scaledY := make([]float64, td.Len())
	for i, v := range td.Y {
		scaledY[i] = v / s.YScale
	}
	if err := ridge.Fit(x.Matrix(false), mat.NewDense(len(scaledY), 1, scaledY)); err != nil {
		return fmt.Errorf("unable to fit decomposition, %w", err)
	}

	s.Intercept = ridge.Intercept()
	coef := ridge.Coef()
	s.Weights = make([]FeatureWeight, len(labels))
	var deltaSum float64
	var deltaCnt int
	for i, f := range labels {
		s.Weights[i] = FeatureWeight{
			Labels: f.Decode(),
			Type:   f.Type(),
			Value:  coef[i],
		}
		if f.Type() == feature.FeatureTypeChangepoint {
			deltaSum += math.Abs(coef[i])
			deltaCnt++
		}
	}
	if deltaCnt > 0 {
		s.DeltaMean = deltaSum / float64(deltaCnt) * s.YScale
	}

	scaledT := s.scaledTime(td.T)
	s.SMean, s.SVar = stat.PopMeanVariance(scaledT, nil)

	fitted := s.predict(td.T)
	residual := make([]float64, td.Len())
	for i := range residual {
		residual[i] = td.Y[i] - fitted.Point[i]
	}
	s.Sigma = stat.PopStdDev(residual, nil)

	scores, err := evaluate.NewScores(fitted.Point, td.Y)
	if err != nil {
		return err
	}
	s.Scores = scores

	slog.Debug("fit decomposition",
		"observations", s.N,
		"changepoints", len(s.Changepoints),
		"seasonal_components", len(s.Seasonal),
		"freq", s.Freq.String(),
		"r2", scores.R2,
	)

	m.state = s
	return nil
}

// PredictInSample returns the fitted values at the given timestamps
func (m *Model) PredictInSample(t []time.Time) ([]float64, error) {
	if m == nil {
		return nil, ErrUninitializedModel
	}
	if m.state == nil {
		return nil, errs.ErrNotFitted
	}
	return m.state.predict(t).Point, nil
}

// PredictFuture projects horizon steps past the last training timestamp at the training
// frequency. The symmetric interval widens as the trend is extrapolated further out.
func (m *Model) PredictFuture(horizon int) (*Prediction, error) {
	if m == nil {
		return nil, ErrUninitializedModel
	}
	if m.state == nil {
		return nil, errs.ErrNotFitted
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d must be positive, %w", horizon, errs.ErrConfiguration)
	}
	s := m.state

	t := make([]time.Time, horizon)
	for i := range t {
		t[i] = s.TrainEnd.Add(time.Duration(i+1) * s.Freq)
	}

	p := s.predict(t)
	scaledT := s.scaledTime(t)
	p.Lower = make([]float64, horizon)
	p.Upper = make([]float64, horizon)
	z := distuv.UnitNormal.Quantile(0.5 + s.Options.IntervalWidth/2.0)
	for i := range t {
		half := z * s.halfWidth(scaledT[i])
		p.Lower[i] = p.Point[i] - half
		p.Upper[i] = p.Point[i] + half
	}
	return p, nil
}

// Fitted reports whether Fit has completed
func (m *Model) Fitted() bool {
	return m != nil && m.state != nil
}

// Scores returns the in-sample fit scores
func (m *Model) Scores() evaluate.Scores {
	if m == nil || m.state == nil || m.state.Scores == nil {
		return evaluate.Scores{}
	}
	return *m.state.Scores
}

// ResidualStd returns the population standard deviation of the in-sample residual
func (m *Model) ResidualStd() float64 {
	if m == nil || m.state == nil {
		return 0
	}
	return m.state.Sigma
}

// Freq returns the sampling frequency inferred from the training timestamps
func (m *Model) Freq() time.Duration {
	if m == nil || m.state == nil {
		return 0
	}
	return m.state.Freq
}

// SeasonalComponents returns the names of the periodic components kept after fitting
func (m *Model) SeasonalComponents() []string {
	if m == nil || m.state == nil {
		return nil
	}
	names := make([]string, 0, len(m.state.Seasonal))
	for _, comp := range m.state.Seasonal {
		names = append(names, comp.Name)
	}
	return names
}

func (o *Options) penalty(ft feature.FeatureType) float64 {
	switch ft {
	case feature.FeatureTypeChangepoint:
		return math.Pow(noiseScale/o.ChangepointPriorScale, 2)
	case feature.FeatureTypeSeasonality:
		return math.Pow(noiseScale/o.SeasonalityPriorScale, 2)
	case feature.FeatureTypeEvent:
		return math.Pow(noiseScale/o.HolidayPriorScale, 2)
	}
	return 0
}

func maxAbs(y []float64) float64 {
	var res float64
	for _, v := range y {
		res = math.Max(res, math.Abs(v))
	}
	if res == 0 {
		return 1.0
	}
	return res
}

// placeChangepoints spreads n candidate changepoints evenly over the first chptRange of
// the training observations, excluding the first observation.
func placeChangepoints(t []time.Time, n int, chptRange float64) []feature.Changepoint {
	histSize := int(math.Floor(float64(len(t)) * chptRange))
	if n > histSize-1 {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	res := make([]feature.Changepoint, 0, n)
	lastIdx := 0
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		if idx <= lastIdx {
			continue
		}
		lastIdx = idx
		res = append(res, *feature.NewChangepoint(fmt.Sprintf("auto_%02d", len(res)), t[idx]))
	}
	return res
}

func enabledSeasonal(requested []seasonal, span, freq time.Duration) []seasonal {
	var res []seasonal
	for _, comp := range requested {
		if span < 2*comp.Period {
			slog.Debug("disabling seasonal component, less than two periods of history",
				"component", comp.Name, "span", span.String())
			continue
		}
		if comp.Period < 2*freq {
			slog.Debug("disabling seasonal component, period shorter than two samples",
				"component", comp.Name, "freq", freq.String())
			continue
		}
		res = append(res, comp)
	}
	return res
}
