// Package forecaststore persists forecast tables keyed by dataset id and method. A new
// run for the same key replaces the previous table.
package forecaststore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/errs"
)

var (
	ErrForecastNotFound = errors.New("forecast not found")
	ErrNoForecast       = errors.New("no forecast provided")
)

type Store interface {
	Save(ctx context.Context, datasetID string, fc *forecaster.Forecast) error
	Load(ctx context.Context, datasetID string, method forecaster.Method) (*forecaster.Forecast, error)
	// List returns the methods with a stored forecast for the dataset in method order
	List(ctx context.Context, datasetID string) ([]forecaster.Method, error)
}

// LoadAll reads every stored forecast of the dataset keyed by method name
func LoadAll(ctx context.Context, s Store, datasetID string) (map[string]*forecaster.Forecast, error) {
	methods, err := s.List(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*forecaster.Forecast, len(methods))
	for _, m := range methods {
		fc, err := s.Load(ctx, datasetID, m)
		if err != nil {
			return nil, fmt.Errorf("unable to load %s forecast of %q, %w", m, datasetID, err)
		}
		out[m.String()] = fc
	}
	return out, nil
}

func checkSave(datasetID string, fc *forecaster.Forecast) error {
	if datasetID == "" || strings.ContainsAny(datasetID, `/\`) {
		return fmt.Errorf("dataset id %q, %w", datasetID, errs.ErrConfiguration)
	}
	if fc == nil {
		return ErrNoForecast
	}
	if !fc.Method.Valid() {
		return fmt.Errorf("forecast method %s is not storable, %w", fc.Method, ErrNoForecast)
	}
	return nil
}

// parseMethods keeps the recognized method names in method order
func parseMethods(names []string) []forecaster.Method {
	methods := make([]forecaster.Method, 0, len(names))
	for _, name := range names {
		m, err := forecaster.ParseMethod(name)
		if err != nil {
			continue
		}
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
