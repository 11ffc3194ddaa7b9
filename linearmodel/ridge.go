package linearmodel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNegativePenalty = errors.New("penalty must be non-negative")

// RidgeOptions configures an L2 penalized regression. Penalties holds one weight per
// feature column; a missing entry falls back to Lambda. The intercept is never penalized.
type RidgeOptions struct {
	FitIntercept bool      `json:"fit_intercept"`
	Lambda       float64   `json:"lambda"`
	Penalties    []float64 `json:"penalties,omitempty"`
}

func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		FitIntercept: true,
		Lambda:       1.0,
	}
}

func (r *RidgeOptions) Validate() (*RidgeOptions, error) {
	if r == nil {
		r = NewDefaultRidgeOptions()
	}
	if r.Lambda < 0 {
		return nil, fmt.Errorf("lambda %.3f, %w", r.Lambda, ErrNegativePenalty)
	}
	for i, p := range r.Penalties {
		if p < 0 {
			return nil, fmt.Errorf("penalty %d is %.3f, %w", i, p, ErrNegativePenalty)
		}
	}
	return r, nil
}

func (r *RidgeOptions) penalty(col int) float64 {
	if col < len(r.Penalties) {
		return r.Penalties[col]
	}
	return r.Lambda
}

// RidgeRegression minimizes ||y - Xb||^2 + sum_j lambda_j * b_j^2 by solving the
// augmented least squares system [X; sqrt(diag(lambda))] b = [y; 0] with QR.
type RidgeRegression struct {
	opt       *RidgeOptions
	coef      []float64
	intercept float64
}

func NewRidgeRegression(opt *RidgeOptions) (*RidgeRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeRegression{opt: opt}, nil
}

func (r *RidgeRegression) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	m, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	_, n := x.Dims()

	offset := 0
	if r.opt.FitIntercept {
		offset = 1
	}
	cols := n + offset

	a := mat.NewDense(m+n, cols, nil)
	b := make([]float64, m+n)
	for i := 0; i < m; i++ {
		if r.opt.FitIntercept {
			a.Set(i, 0, 1.0)
		}
		for j := 0; j < n; j++ {
			a.Set(i, j+offset, x.At(i, j))
		}
		b[i] = y.At(i, 0)
	}
	for j := 0; j < n; j++ {
		a.Set(m+j, j+offset, math.Sqrt(r.opt.penalty(j)))
	}

	c, err := solveQR(a, b)
	if err != nil {
		return fmt.Errorf("unable to solve ridge system, %w", err)
	}

	if r.opt.FitIntercept {
		r.intercept = c[0]
		r.coef = c[1:]
	} else {
		r.intercept = 0
		r.coef = c
	}
	return nil
}

func (r *RidgeRegression) Predict(x mat.Matrix) ([]float64, error) {
	if r.opt == nil {
		return nil, ErrNoOptions
	}
	return predict(x, r.intercept, r.coef)
}

func (r *RidgeRegression) Score(x, y mat.Matrix) (float64, error) {
	if r.opt == nil {
		return 0.0, ErrNoOptions
	}
	if _, err := checkTraining(x, y); err != nil {
		return 0.0, err
	}
	res, err := r.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil), nil
}

func (r *RidgeRegression) Intercept() float64 {
	return r.intercept
}

func (r *RidgeRegression) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}
