// Package errs holds the error kinds shared by every stage of the forecasting
// pipeline. Callers wrap them with context and match with errors.Is.
package errs

import "errors"

var (
	ErrMissingColumn    = errors.New("required column missing from dataset")
	ErrEmptySeries      = errors.New("no valid observations after preprocessing")
	ErrInsufficientData = errors.New("insufficient data to fit model")
	ErrNotFitted        = errors.New("model has not been fitted")
	ErrConfiguration    = errors.New("invalid configuration")
	ErrEmptyOverlap     = errors.New("forecast and actual series share no timestamps")
	ErrDatasetNotFound  = errors.New("dataset not found")
)
