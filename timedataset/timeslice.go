package timedataset

import (
	"errors"
	"time"
)

var ErrCannotInferFreq = errors.New("cannot infer frequency from less than 2 points")

// DefaultFreq is used when a frequency cannot be inferred from the history
const DefaultFreq = 24 * time.Hour

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}
	return t[len(t)-1]
}

// EstimateFreq returns the most common spacing between consecutive timestamps. Ties
// resolve to the smaller spacing.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	var maxDelta time.Duration
	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	if maxDelta <= 0 {
		return 0, ErrCannotInferFreq
	}
	return maxDelta, nil
}

// FreqOrDefault returns the estimated frequency, falling back to daily spacing
func (t TimeSlice) FreqOrDefault() time.Duration {
	freq, err := t.EstimateFreq()
	if err != nil {
		return DefaultFreq
	}
	return freq
}

// Future generates horizon timestamps spaced by the inferred frequency starting one
// step after the last timestamp.
func (t TimeSlice) Future(horizon int) []time.Time {
	if horizon <= 0 || len(t) == 0 {
		return nil
	}
	freq := t.FreqOrDefault()
	last := t.EndTime()

	res := make([]time.Time, 0, horizon)
	for i := 1; i <= horizon; i++ {
		res = append(res, last.Add(time.Duration(i)*freq))
	}
	return res
}
