package decomposition

import (
	"fmt"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/feature"
)

// MaxWeekendDurBuffer limits how far the weekend window may be widened before
// Saturday 00:00 or after Monday 00:00
const MaxWeekendDurBuffer = 24 * time.Hour

// LabelEventWeekend names the weekend level shift regressor
const LabelEventWeekend = "weekend"

// WeekendOptions lets us model weekends separately from weekdays. The weekend is read
// in the dataset timezone unless TimezoneOverride names another location.
type WeekendOptions struct {
	Enabled          bool          `json:"enabled"`
	TimezoneOverride string        `json:"timezone_override,omitempty"`
	DurBefore        time.Duration `json:"duration_before"`
	DurAfter         time.Duration `json:"duration_after"`
}

func (w WeekendOptions) validate() error {
	if !w.Enabled {
		return nil
	}
	if w.DurBefore < -MaxWeekendDurBuffer || w.DurBefore > MaxWeekendDurBuffer ||
		w.DurAfter < -MaxWeekendDurBuffer || w.DurAfter > MaxWeekendDurBuffer {
		return fmt.Errorf("weekend buffers must be within %s, %w", MaxWeekendDurBuffer, errs.ErrConfiguration)
	}
	if w.TimezoneOverride != "" {
		if _, err := time.LoadLocation(w.TimezoneOverride); err != nil {
			return fmt.Errorf("weekend timezone %q, %w", w.TimezoneOverride, errs.ErrConfiguration)
		}
	}
	return nil
}

func (w WeekendOptions) location() *time.Location {
	if w.TimezoneOverride == "" {
		return nil
	}
	loc, err := time.LoadLocation(w.TimezoneOverride)
	if err != nil {
		return nil
	}
	return loc
}

func isWeekendDay(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// isWeekend reports whether the point falls inside the weekend widened by DurBefore
// ahead of Saturday and DurAfter past Sunday. Negative buffers shrink the window.
func (w WeekendOptions) isWeekend(tPnt time.Time) bool {
	if w.DurBefore == 0 && w.DurAfter == 0 {
		return isWeekendDay(tPnt.Weekday())
	}
	before := isWeekendDay(tPnt.Add(w.DurBefore).Weekday())
	after := isWeekendDay(tPnt.Add(-w.DurAfter).Weekday())
	if w.DurBefore > 0 && w.DurAfter > 0 {
		return before || after
	}
	return before && after
}

// mask is 1 for weekend points and 0 otherwise
func (w WeekendOptions) mask(t []time.Time) []float64 {
	loc := w.location()
	res := make([]float64, len(t))
	for i, tPnt := range t {
		if loc != nil {
			tPnt = tPnt.In(loc)
		}
		if w.isWeekend(tPnt) {
			res[i] = 1.0
		}
	}
	return res
}

// weekendFeature generates the weekend regressor
func (w WeekendOptions) weekendFeature(t []time.Time) (*feature.Event, []float64) {
	return feature.NewEvent(LabelEventWeekend), w.mask(t)
}

// covers reports whether the training points include both weekend and weekday samples,
// otherwise the regressor cannot be separated from the intercept
func (w WeekendOptions) covers(t []time.Time) bool {
	var weekend, weekday bool
	for _, v := range w.mask(t) {
		if v == 1 {
			weekend = true
		} else {
			weekday = true
		}
		if weekend && weekday {
			return true
		}
	}
	return false
}
