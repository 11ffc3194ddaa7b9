// Package service runs forecasting, evaluation and anomaly alerting requests against
// stored datasets.
package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/anomaly"
	"github.com/neurolytix/go-forecaster/datastore"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/evaluate"
	"github.com/neurolytix/go-forecaster/forecaststore"
	"github.com/neurolytix/go-forecaster/internal/cache"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/timedataset"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoForecasts = errors.New("no stored forecasts for dataset")

const (
	DefaultHorizon   = 30
	DefaultCacheSize = 128
	DefaultCacheTTL  = 30 * time.Minute
)

type Options struct {
	Forecaster *forecaster.Options
	Anomaly    *anomaly.Options

	DefaultMethod  forecaster.Method
	DefaultHorizon int
	CacheSize      int
	CacheTTL       time.Duration

	Metrics  *metrics.Metrics
	Notifier Notifier
	Logger   *slog.Logger
}

func NewDefaultOptions() *Options {
	return &Options{
		Forecaster:     forecaster.NewDefaultOptions(),
		Anomaly:        anomaly.NewDefaultOptions(),
		DefaultMethod:  forecaster.Hybrid,
		DefaultHorizon: DefaultHorizon,
		CacheSize:      DefaultCacheSize,
		CacheTTL:       DefaultCacheTTL,
	}
}

// Request asks for a forecast of one column of a dataset. An empty method and a zero
// horizon use the service defaults.
type Request struct {
	DatasetID string `json:"dataset_id"`
	Column    string `json:"column"`
	Method    string `json:"method"`
	Horizon   int    `json:"horizon"`
}

type Result struct {
	RunID     string               `json:"run_id"`
	DatasetID string               `json:"dataset_id"`
	Column    string               `json:"column"`
	Cached    bool                 `json:"cached"`
	Forecast  *forecaster.Forecast `json:"forecast"`
}

// Comparison scores every stored forecast of a dataset against its realized values
type Comparison struct {
	DatasetID string                      `json:"dataset_id"`
	Column    string                      `json:"column"`
	Metrics   map[string]evaluate.Metrics `json:"metrics"`
	Ranking   []string                    `json:"ranking"`
}

type Service struct {
	loader   datastore.Loader
	store    forecaststore.Store
	fcOpt    *forecaster.Options
	fcOptFP  string
	detector anomaly.Detector
	method   forecaster.Method
	horizon  int

	models   *cache.LRUWithTTL[cache.Key, forecaster.Forecaster]
	metrics  *metrics.Metrics
	notifier Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a service reading datasets from loader and persisting forecasts to store.
// A nil store skips persistence.
func New(loader datastore.Loader, store forecaststore.Store, opt *Options) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("no dataset loader provided, %w", errs.ErrConfiguration)
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	fcOpt, err := opt.Forecaster.Validate()
	if err != nil {
		return nil, err
	}
	fp, err := fcOpt.Fingerprint()
	if err != nil {
		return nil, err
	}
	detector, err := anomaly.New(opt.Anomaly)
	if err != nil {
		return nil, err
	}

	method := opt.DefaultMethod
	if method == 0 {
		method = forecaster.Hybrid
	}
	if !method.Valid() {
		return nil, fmt.Errorf("default method %s, %w", method, errs.ErrConfiguration)
	}
	horizon := opt.DefaultHorizon
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	size := opt.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	models, err := cache.NewLRUWithTTL[cache.Key, forecaster.Forecaster](size, opt.CacheTTL)
	if err != nil {
		return nil, err
	}

	m := opt.Metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	notifier := opt.Notifier
	if notifier == nil {
		notifier = &LogNotifier{Logger: opt.Logger}
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		loader:   loader,
		store:    store,
		fcOpt:    fcOpt,
		fcOptFP:  fp,
		detector: detector,
		method:   method,
		horizon:  horizon,
		models:   models,
		metrics:  m,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("neurolytix.service"),
	}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Forecast loads the column, fits the requested method, predicts the horizon and stores
// the table under (dataset id, method). A warm model fitted on identical data and
// options is reused for prediction.
func (s *Service) Forecast(ctx context.Context, req Request) (*Result, error) {
	method := s.method
	if req.Method != "" {
		var err error
		if method, err = forecaster.ParseMethod(req.Method); err != nil {
			return nil, err
		}
	}
	horizon := req.Horizon
	if horizon == 0 {
		horizon = s.horizon
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d must be positive, %w", horizon, errs.ErrConfiguration)
	}

	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "Service.Forecast", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("dataset_id", req.DatasetID),
		attribute.String("column", req.Column),
		attribute.String("method", method.String()),
		attribute.Int("horizon", horizon),
	))
	defer span.End()

	res, err := s.forecast(ctx, runID, method, horizon, req)
	if err != nil {
		s.metrics.ForecastErrors.WithLabelValues(method.String()).Inc()
		return nil, fail(span, err)
	}
	s.metrics.ForecastsTotal.WithLabelValues(method.String()).Inc()
	span.SetAttributes(attribute.Bool("cached", res.Cached))
	return res, nil
}

func (s *Service) forecast(ctx context.Context, runID string, method forecaster.Method, horizon int, req Request) (*Result, error) {
	td, err := s.loader.LoadSeries(ctx, req.DatasetID, req.Column)
	if err != nil {
		return nil, fmt.Errorf("unable to load series, %w", err)
	}

	key := cache.Key{
		DatasetID: req.DatasetID,
		Column:    req.Column,
		Method:    method.String(),
		Options:   s.fcOptFP,
		Data:      DataFingerprint(td),
	}
	f, cached := s.models.Get(key)
	if cached {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
		if f, err = s.fit(ctx, method, td); err != nil {
			return nil, err
		}
		s.models.Set(key, f)
	}

	fc, err := f.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict %s, %w", method, err)
	}
	if s.store != nil {
		if err := s.store.Save(ctx, req.DatasetID, fc); err != nil {
			return nil, fmt.Errorf("unable to persist forecast, %w", err)
		}
	}

	s.logger.InfoContext(ctx, "forecast complete",
		"run_id", runID,
		"dataset_id", req.DatasetID,
		"column", req.Column,
		"method", method.String(),
		"horizon", horizon,
		"cached", cached,
	)
	return &Result{
		RunID:     runID,
		DatasetID: req.DatasetID,
		Column:    req.Column,
		Cached:    cached,
		Forecast:  fc,
	}, nil
}

func (s *Service) fit(ctx context.Context, method forecaster.Method, td *timedataset.TimeDataset) (forecaster.Forecaster, error) {
	_, span := s.tracer.Start(ctx, "Service.fit", trace.WithAttributes(
		attribute.String("method", method.String()),
		attribute.Int("observations", td.Len()),
	))
	defer span.End()

	f, err := forecaster.New(method, s.fcOpt)
	if err != nil {
		return nil, fail(span, err)
	}
	start := time.Now()
	if err := f.Fit(td); err != nil {
		return nil, fail(span, fmt.Errorf("unable to fit %s, %w", method, err))
	}
	s.metrics.FitDuration.WithLabelValues(method.String()).Observe(time.Since(start).Seconds())
	return f, nil
}

// Compare scores every stored forecast of the dataset against the column's values and
// ranks them best first
func (s *Service) Compare(ctx context.Context, datasetID, column string) (*Comparison, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Compare", trace.WithAttributes(
		attribute.String("dataset_id", datasetID),
		attribute.String("column", column),
	))
	defer span.End()

	if s.store == nil {
		return nil, fail(span, fmt.Errorf("no forecast store configured, %w", errs.ErrConfiguration))
	}
	actual, err := s.loader.LoadSeries(ctx, datasetID, column)
	if err != nil {
		return nil, fail(span, fmt.Errorf("unable to load series, %w", err))
	}
	stored, err := forecaststore.LoadAll(ctx, s.store, datasetID)
	if err != nil {
		return nil, fail(span, err)
	}
	if len(stored) == 0 {
		return nil, fail(span, fmt.Errorf("dataset %q, %w", datasetID, ErrNoForecasts))
	}

	candidates := make(map[string]*timedataset.TimeDataset, len(stored))
	for name, fc := range stored {
		candidates[name] = fc.Series()
	}
	scores, err := evaluate.Compare(candidates, actual)
	if err != nil {
		return nil, fail(span, err)
	}
	return &Comparison{
		DatasetID: datasetID,
		Column:    column,
		Metrics:   scores,
		Ranking:   evaluate.Rank(scores),
	}, nil
}

// Detect flags anomalies in the column. When any are found and notifyAddress is set an
// alert is handed to the notifier.
func (s *Service) Detect(ctx context.Context, datasetID, column, notifyAddress string) (*anomaly.Result, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Detect", trace.WithAttributes(
		attribute.String("dataset_id", datasetID),
		attribute.String("column", column),
	))
	defer span.End()

	td, err := s.loader.LoadSeries(ctx, datasetID, column)
	if err != nil {
		return nil, fail(span, fmt.Errorf("unable to load series, %w", err))
	}
	res, err := s.detector.Detect(td)
	if err != nil {
		return nil, fail(span, fmt.Errorf("unable to detect anomalies, %w", err))
	}
	span.SetAttributes(attribute.Int("anomalies", res.Count))
	s.metrics.AnomaliesTotal.WithLabelValues(datasetID).Add(float64(res.Count))

	if res.Count == 0 || notifyAddress == "" {
		return res, nil
	}
	alert := NewAlert(datasetID, column, notifyAddress, res)
	if err := s.notifier.Notify(ctx, alert); err != nil {
		return nil, fail(span, fmt.Errorf("unable to send alert to %s, %w", notifyAddress, err))
	}
	s.metrics.AlertsSent.Inc()
	return res, nil
}

// NewAlert formats the detection result of a dataset column for delivery to address
func NewAlert(datasetID, column, address string, res *anomaly.Result) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Address:   address,
		DatasetID: datasetID,
		Column:    column,
		Subject:   alertSubject(datasetID),
		Body:      alertBody(datasetID, column, res),
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
}

// DataFingerprint hashes the timestamps and values of a series
func DataFingerprint(td *timedataset.TimeDataset) string {
	h := fnv.New64a()
	var buf [16]byte
	for i := range td.T {
		binary.LittleEndian.PutUint64(buf[:8], uint64(td.T[i].UnixNano()))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(td.Y[i]))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
