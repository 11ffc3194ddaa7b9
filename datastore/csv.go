package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/table"
	"github.com/neurolytix/go-forecaster/timedataset"
)

const csvExt = ".csv"

// CSVLoader reads datasets stored as <id>.csv or <id>_<name>.csv files in a directory
type CSVLoader struct {
	Dir        string
	TimeColumn string
}

func NewCSVLoader(dir, timeColumn string) *CSVLoader {
	if timeColumn == "" {
		timeColumn = table.DefaultTimeColumn
	}
	return &CSVLoader{Dir: dir, TimeColumn: timeColumn}
}

// Path returns the file backing the dataset. An exact <id>.csv wins over prefixed
// files, and among prefixed files the lexically first is used.
func (l *CSVLoader) Path(datasetID string) (string, error) {
	if datasetID == "" || strings.ContainsAny(datasetID, `/\`) {
		return "", fmt.Errorf("dataset id %q, %w", datasetID, errs.ErrDatasetNotFound)
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return "", fmt.Errorf("unable to read dataset directory %s, %w", l.Dir, err)
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, csvExt) {
			continue
		}
		if name == datasetID+csvExt {
			return filepath.Join(l.Dir, name), nil
		}
		if strings.HasPrefix(name, datasetID+"_") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("dataset %q in %s, %w", datasetID, l.Dir, errs.ErrDatasetNotFound)
	}
	sort.Strings(candidates)
	return filepath.Join(l.Dir, candidates[0]), nil
}

// LoadTable reads the full raw table of the dataset
func (l *CSVLoader) LoadTable(datasetID string) (*table.Table, error) {
	path, err := l.Path(datasetID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open dataset %s, %w", path, err)
	}
	defer f.Close()

	tbl, err := table.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load dataset %q, %w", datasetID, err)
	}
	return tbl, nil
}

func (l *CSVLoader) LoadSeries(ctx context.Context, datasetID, target string) (*timedataset.TimeDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl, err := l.LoadTable(datasetID)
	if err != nil {
		return nil, err
	}
	td, err := tbl.Series(l.TimeColumn, target)
	if err != nil {
		return nil, fmt.Errorf("dataset %q, %w", datasetID, err)
	}
	return td, nil
}

// ListDatasets returns the sorted, distinct dataset ids present in the directory
func (l *CSVLoader) ListDatasets() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read dataset directory %s, %w", l.Dir, err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, csvExt) {
			continue
		}
		id := strings.TrimSuffix(name, csvExt)
		if i := strings.Index(id, "_"); i > 0 {
			id = id[:i]
		}
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
