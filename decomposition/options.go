package decomposition

import (
	"fmt"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/event"
)

const (
	DailyPeriod  = 24 * time.Hour
	WeeklyPeriod = 7 * DailyPeriod
	YearlyPeriod = time.Duration(365.25 * float64(DailyPeriod))

	DefaultDailyOrders           = 4
	DefaultWeeklyOrders          = 3
	DefaultYearlyOrders          = 10
	DefaultNumChangepoints       = 25
	DefaultChangepointRange      = 0.8
	DefaultChangepointPriorScale = 0.05
	DefaultSeasonalityPriorScale = 10.0
	DefaultHolidayPriorScale     = 10.0
	DefaultIntervalWidth         = 0.8
)

// Options configures the trend and periodic components of the decomposition
type Options struct {
	DailySeasonality  bool `json:"daily_seasonality"`
	WeeklySeasonality bool `json:"weekly_seasonality"`
	YearlySeasonality bool `json:"yearly_seasonality"`

	DailyOrders  int `json:"daily_orders"`
	WeeklyOrders int `json:"weekly_orders"`
	YearlyOrders int `json:"yearly_orders"`

	// NumChangepoints are placed evenly across the first ChangepointRange of history
	NumChangepoints  int     `json:"num_changepoints"`
	ChangepointRange float64 `json:"changepoint_range"`

	// prior scales control the L2 penalty of each feature group, smaller is stiffer
	ChangepointPriorScale float64 `json:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `json:"seasonality_prior_scale"`
	HolidayPriorScale     float64 `json:"holiday_prior_scale"`

	// Holidays are named calendar holidays modeled as one day level shifts
	Holidays []string `json:"holidays,omitempty"`

	// Weekend adds a level shift for Saturday and Sunday points
	Weekend WeekendOptions `json:"weekend"`

	IntervalWidth float64 `json:"interval_width"`
}

// NewDefaultOptions enables every periodic component; components without enough
// history are dropped at fit time.
func NewDefaultOptions() *Options {
	return &Options{
		DailySeasonality:      true,
		WeeklySeasonality:     true,
		YearlySeasonality:     true,
		DailyOrders:           DefaultDailyOrders,
		WeeklyOrders:          DefaultWeeklyOrders,
		YearlyOrders:          DefaultYearlyOrders,
		NumChangepoints:       DefaultNumChangepoints,
		ChangepointRange:      DefaultChangepointRange,
		ChangepointPriorScale: DefaultChangepointPriorScale,
		SeasonalityPriorScale: DefaultSeasonalityPriorScale,
		HolidayPriorScale:     DefaultHolidayPriorScale,
		IntervalWidth:         DefaultIntervalWidth,
	}
}

// Validate returns the default options when nil and otherwise checks every field
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.DailyOrders < 0 || o.WeeklyOrders < 0 || o.YearlyOrders < 0 {
		return nil, fmt.Errorf("fourier orders must be non-negative, %w", errs.ErrConfiguration)
	}
	if o.NumChangepoints < 0 {
		return nil, fmt.Errorf("num changepoints %d, %w", o.NumChangepoints, errs.ErrConfiguration)
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		return nil, fmt.Errorf("changepoint range %.3f not in (0, 1], %w", o.ChangepointRange, errs.ErrConfiguration)
	}
	if o.ChangepointPriorScale <= 0 || o.SeasonalityPriorScale <= 0 || o.HolidayPriorScale <= 0 {
		return nil, fmt.Errorf("prior scales must be positive, %w", errs.ErrConfiguration)
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return nil, fmt.Errorf("interval width %.3f not in (0, 1), %w", o.IntervalWidth, errs.ErrConfiguration)
	}
	if err := o.Weekend.validate(); err != nil {
		return nil, err
	}
	for _, name := range o.Holidays {
		if _, err := event.Lookup(name); err != nil {
			return nil, fmt.Errorf("%w, %w", err, errs.ErrConfiguration)
		}
	}
	return o, nil
}

// seasonal is a periodic component requested by the options
type seasonal struct {
	Name   string        `json:"name"`
	Period time.Duration `json:"period"`
	Orders int           `json:"orders"`
}

func (o *Options) requested() []seasonal {
	var res []seasonal
	if o.DailySeasonality && o.DailyOrders > 0 {
		res = append(res, seasonal{"daily", DailyPeriod, o.DailyOrders})
	}
	if o.WeeklySeasonality && o.WeeklyOrders > 0 {
		res = append(res, seasonal{"weekly", WeeklyPeriod, o.WeeklyOrders})
	}
	if o.YearlySeasonality && o.YearlyOrders > 0 {
		res = append(res, seasonal{"yearly", YearlyPeriod, o.YearlyOrders})
	}
	return res
}
