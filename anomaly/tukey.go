package anomaly

import (
	"math"
	"sort"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/timedataset"
)

// Tukey flags points outside the fence built from the inner percentile range widened by
// Factor on each side.
type Tukey struct {
	LowerPerc float64
	UpperPerc float64
	Factor    float64
}

func (tk *Tukey) Detect(td *timedataset.TimeDataset) (*Result, error) {
	if td.Len() == 0 {
		return nil, errs.ErrEmptySeries
	}
	lower, upper := Fence(td.Y, tk.LowerPerc, tk.UpperPerc, tk.Factor)

	scores := make([]float64, td.Len())
	width := upper - lower
	for i, v := range td.Y {
		switch {
		case v > upper && width > 0:
			scores[i] = (v - upper) / width
		case v < lower && width > 0:
			scores[i] = (v - lower) / width
		}
	}
	return result(td, DetectOutliers(td.Y, tk.LowerPerc, tk.UpperPerc, tk.Factor), scores), nil
}

// Fence returns the lower and upper bounds outside which a value is an outlier
func Fence(y []float64, lowerPerc, upperPerc, tukeyFactor float64) (float64, float64) {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return math.Inf(-1), math.Inf(1)
	}
	sort.Float64s(yCopy)

	last := len(yCopy) - 1
	lowerIdx := min(int(math.Floor(float64(last)*lowerPerc)), last)
	upperIdx := min(int(math.Ceil(float64(last)*upperPerc)), last)

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	return lower - innerRange*tukeyFactor, upper + innerRange*tukeyFactor
}

// DetectOutliers returns the indices of values strictly outside the Tukey fence. NaN
// values are never flagged.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lower, upper := Fence(y, lowerPerc, upperPerc, tukeyFactor)

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
