package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/anomaly"
	"github.com/neurolytix/go-forecaster/datastore"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/forecaststore"
	"github.com/neurolytix/go-forecaster/internal/config"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/monitor"
	"github.com/neurolytix/go-forecaster/service"
)

// stack holds the components built from the config and their teardown
type stack struct {
	loader  datastore.Loader
	store   forecaststore.Store
	service *service.Service
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildLoader(c *config.Config) (datastore.Loader, func(), error) {
	switch c.Data.Source {
	case "csv":
		return datastore.NewCSVLoader(c.Data.Dir, c.Data.TimeColumn), func() {}, nil
	case "influx":
		l := datastore.NewInfluxLoader(datastore.InfluxOptions{
			URL:    c.Data.Influx.URL,
			Token:  c.Data.Influx.Token,
			Org:    c.Data.Influx.Org,
			Bucket: c.Data.Influx.Bucket,
		})
		return l, l.Close, nil
	}
	return nil, nil, fmt.Errorf("data source %q, %w", c.Data.Source, errs.ErrConfiguration)
}

func buildStore(ctx context.Context, c *config.Config) (forecaststore.Store, func(), error) {
	switch c.Store.Backend {
	case "file":
		s, err := forecaststore.NewFileStore(c.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "postgres":
		s, err := forecaststore.NewPostgresStore(ctx, c.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		r := c.Store.Redis
		s, err := forecaststore.NewRedisStore(r.Addr, r.Password, r.DB, r.TTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("store backend %q, %w", c.Store.Backend, errs.ErrConfiguration)
}

func anomalyOptions(c *config.Config) *anomaly.Options {
	opt := anomaly.NewDefaultOptions()
	opt.Method = c.Monitor.Detector
	opt.Detrend = c.Monitor.Detrend
	if c.Monitor.Threshold > 0 {
		opt.ZThreshold = c.Monitor.Threshold
	}
	return opt
}

func buildStack(ctx context.Context, c *config.Config, m *metrics.Metrics) (*stack, error) {
	st := &stack{}
	loader, closeLoader, err := buildLoader(c)
	if err != nil {
		return nil, err
	}
	st.loader = loader
	st.closers = append(st.closers, closeLoader)

	store, closeStore, err := buildStore(ctx, c)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.store = store
	st.closers = append(st.closers, closeStore)

	method, err := forecaster.ParseMethod(c.Forecast.Method)
	if err != nil {
		st.Close()
		return nil, err
	}
	opt := service.NewDefaultOptions()
	opt.DefaultMethod = method
	opt.DefaultHorizon = c.Forecast.Horizon
	opt.CacheSize = c.Cache.Size
	opt.CacheTTL = c.Cache.TTL
	opt.Anomaly = anomalyOptions(c)
	opt.Metrics = m
	opt.Logger = slog.Default()

	svc, err := service.New(loader, store, opt)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.service = svc
	return st, nil
}

// parseJob reads a dataset:column[:address] job flag
func parseJob(s string) (monitor.JobSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return monitor.JobSpec{}, fmt.Errorf("job %q must be dataset:column[:address], %w", s, errs.ErrConfiguration)
	}
	spec := monitor.JobSpec{DatasetID: parts[0], Column: parts[1]}
	if len(parts) == 3 {
		spec.NotifyAddress = parts[2]
	}
	return spec, nil
}

func configJobs(c *config.Config) []monitor.JobSpec {
	specs := make([]monitor.JobSpec, 0, len(c.Monitor.Jobs))
	for _, j := range c.Monitor.Jobs {
		specs = append(specs, monitor.JobSpec{
			DatasetID:     j.DatasetID,
			Column:        j.Column,
			NotifyAddress: j.NotifyAddress,
			Interval:      j.Interval,
		})
	}
	return specs
}
