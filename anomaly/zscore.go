package anomaly

import (
	"fmt"
	"math"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/linearmodel"
	"github.com/neurolytix/go-forecaster/timedataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ZScore flags points whose absolute z-score, using the sample standard deviation,
// exceeds Threshold. With Detrend set the scores are taken on the residual of a linear
// fit against time so a steady trend is not flagged at its ends.
type ZScore struct {
	Threshold float64
	Detrend   bool
}

func (z *ZScore) Detect(td *timedataset.TimeDataset) (*Result, error) {
	if td.Len() == 0 {
		return nil, errs.ErrEmptySeries
	}
	threshold := z.Threshold
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}

	y := td.Y
	if z.Detrend {
		res, err := detrend(td)
		if err != nil {
			return nil, err
		}
		y = res
	}

	scores := ZScores(y)
	var idxs []int
	for i, s := range scores {
		if math.Abs(s) > threshold {
			idxs = append(idxs, i)
		}
	}
	return result(td, idxs, scores), nil
}

// ZScores standardizes y. A series with zero spread scores 0 everywhere.
func ZScores(y []float64) []float64 {
	res := make([]float64, len(y))
	if len(y) < 2 {
		return res
	}
	mean, std := stat.MeanStdDev(y, nil)
	if std == 0 || math.IsNaN(std) {
		return res
	}
	for i, v := range y {
		res[i] = (v - mean) / std
	}
	return res
}

// detrend returns the residual of an ordinary least squares line through the series.
// Series too short for a fit are returned as is.
func detrend(td *timedataset.TimeDataset) ([]float64, error) {
	n := td.Len()
	if n < 3 {
		return td.Y, nil
	}
	x := mat.NewDense(n, 1, nil)
	start := td.T[0]
	for i, tPnt := range td.T {
		x.Set(i, 0, tPnt.Sub(start).Hours())
	}
	ols, err := linearmodel.NewOLSRegression(nil)
	if err != nil {
		return nil, err
	}
	if err := ols.Fit(x, mat.NewDense(n, 1, td.Y)); err != nil {
		return nil, fmt.Errorf("unable to detrend series, %w", err)
	}
	fitted, err := ols.Predict(x)
	if err != nil {
		return nil, err
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = td.Y[i] - fitted[i]
	}
	return res, nil
}

func (z *ZScore) String() string {
	if z.Detrend {
		return fmt.Sprintf("zscore(%.2f, detrended)", z.Threshold)
	}
	return fmt.Sprintf("zscore(%.2f)", z.Threshold)
}
