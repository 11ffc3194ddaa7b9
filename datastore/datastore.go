// Package datastore loads raw datasets by id and turns the requested column into a
// clean time series.
package datastore

import (
	"context"

	"github.com/neurolytix/go-forecaster/timedataset"
)

// Loader returns the cleaned series of the target column of a dataset. Unknown ids
// wrap errs.ErrDatasetNotFound and unknown columns wrap errs.ErrMissingColumn.
type Loader interface {
	LoadSeries(ctx context.Context, datasetID, target string) (*timedataset.TimeDataset, error)
}
