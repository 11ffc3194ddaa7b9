// Package event resolves named calendar holidays into time windows that the
// decomposition model treats as level shift regressors.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrStartAfterEnd  = errors.New("event start time is after end time")
	ErrUnsetTime      = errors.New("unset event start or end time")
	ErrNoEventName    = errors.New("no event name")
	ErrUnknownHoliday = errors.New("unknown holiday")
)

var holidays = map[string]*cal.Holiday{
	"new_year":         us.NewYear,
	"memorial_day":     us.MemorialDay,
	"independence_day": us.IndependenceDay,
	"labor_day":        us.LaborDay,
	"thanksgiving":     us.ThanksgivingDay,
	"christmas":        us.ChristmasDay,
}

// Names returns the sorted names of every supported holiday
func Names() []string {
	names := make([]string, 0, len(holidays))
	for name := range holidays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the holiday definition registered under name
func Lookup(name string) (*cal.Holiday, error) {
	hol, exists := holidays[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownHoliday)
	}
	return hol, nil
}

// Event is a named [Start, End) span to model separately
type Event struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Holiday returns one event per observed occurrence of the holiday between start and
// end inclusive. Each event covers the observed day in start's location, padded by
// durBefore and durAfter.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	loc := start.Location()
	_, startOffset := start.Zone()

	events := []Event{}
	for year := start.Year(); year <= end.Year(); year++ {
		_, observed := hol.Calc(year)
		_, offset := observed.Zone()

		// holidays are computed as midnight UTC, shift so midnight is local to start
		day := observed.Add(time.Duration(offset-startOffset) * time.Second).In(loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		events = append(events, Event{
			Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, year), " ", "_"),
			Start: day.Add(-durBefore),
			End:   day.Add(24 * time.Hour).Add(durAfter),
		})
	}
	return events
}

// Named resolves the holiday name and returns its occurrences between start and end
func Named(name string, start, end time.Time, durBefore, durAfter time.Duration) ([]Event, error) {
	hol, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return Holiday(hol, start, end, durBefore, durAfter), nil
}
