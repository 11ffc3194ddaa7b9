// Package linearmodel is a collection of linear regression fitting implementations used
// by the trend/seasonal decomposition.
package linearmodel

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrUnderdetermined    = errors.New("fewer observations than features")
	ErrColMismatch        = errors.New("column size mismatch")
)

type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// DenseFromRows builds a dense matrix from a row major slice of slices
func DenseFromRows(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, ErrNoTrainingMatrix
	}
	n := len(x[0])
	data := make([]float64, 0, len(x)*n)
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(x), n, data), nil
}

func withIntercept(x mat.Matrix) *mat.Dense {
	m, n := x.Dims()
	res := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		res.Set(i, 0, 1.0)
		for j := 0; j < n; j++ {
			res.Set(i, j+1, x.At(i, j))
		}
	}
	return res
}

func checkTraining(x, y mat.Matrix) (int, error) {
	if x == nil {
		return 0, ErrNoTrainingMatrix
	}
	if y == nil {
		return 0, ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return 0, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return m, nil
}

func predict(x mat.Matrix, intercept float64, coef []float64) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}
	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(n, append([]float64(nil), coef...)))

	out := make([]float64, m)
	for i := 0; i < m; i++ {
		out[i] = res.AtVec(i) + intercept
	}
	return out, nil
}

// solveQR returns the least squares solution of a*c = b
func solveQR(a *mat.Dense, b []float64) ([]float64, error) {
	m, n := a.Dims()
	if m < n {
		return nil, fmt.Errorf("%d observations for %d features, %w", m, n, ErrUnderdetermined)
	}
	qr := new(mat.QR)
	qr.Factorize(a)

	var c mat.Dense
	if err := qr.SolveTo(&c, false, mat.NewDense(m, 1, b)); err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, &c), nil
}
