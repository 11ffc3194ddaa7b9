package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n timestamps spaced by interval ending just before nowFunc
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// GenerateTFrom returns n timestamps spaced by interval beginning at start
func GenerateTFrom(start time.Time, n int, interval time.Duration) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetAt overwrites the values at the given positions
func (s Series) SetAt(val float64, idxs ...int) Series {
	for _, idx := range idxs {
		if idx >= 0 && idx < len(s) {
			s[idx] = val
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateLinearY returns intercept + slope*i for i in [0, n)
func GenerateLinearY(n int, intercept, slope float64) Series {
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = intercept + slope*float64(i)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise scaled by noiseScale. A seeded source keeps
// generated datasets reproducible across runs.
func GenerateNoise(n int, noiseScale float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = rng.NormFloat64() * noiseScale
	}
	return Series(y)
}
