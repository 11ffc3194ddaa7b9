package forecaststore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	forecaster "github.com/neurolytix/go-forecaster"
)

const fileExt = ".csv"

// FileStore writes one <dataset>_<method>.csv table per key into a directory
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create forecast directory %s, %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(datasetID string, method forecaster.Method) string {
	return filepath.Join(s.Dir, datasetID+"_"+method.String()+fileExt)
}

// Save replaces the stored table through a rename so readers never see a partial file
func (s *FileStore) Save(ctx context.Context, datasetID string, fc *forecaster.Forecast) error {
	if err := checkSave(datasetID, fc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, "."+datasetID+"-*"+fileExt)
	if err != nil {
		return fmt.Errorf("unable to create forecast file, %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fc.WriteCSV(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write forecast, %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write forecast, %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(datasetID, fc.Method)); err != nil {
		return fmt.Errorf("unable to store forecast, %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, datasetID string, method forecaster.Method) (*forecaster.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(datasetID, method))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s forecast of %q, %w", method, datasetID, ErrForecastNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open forecast, %w", err)
	}
	defer f.Close()
	return forecaster.ReadCSV(f, method)
}

func (s *FileStore) List(ctx context.Context, datasetID string) ([]forecaster.Method, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read forecast directory %s, %w", s.Dir, err)
	}
	prefix := datasetID + "_"
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExt))
	}
	return parseMethods(names), nil
}
