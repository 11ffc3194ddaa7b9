// Package monitor runs scheduled anomaly checks for dataset columns and rate limits the
// alerts they raise.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/neurolytix/go-forecaster/anomaly"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/service"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrJobNotFound    = errors.New("monitor job not found")
	ErrClosed         = errors.New("monitor registry closed")
	ErrAlreadyRunning = errors.New("monitor registry already running")
)

const (
	DefaultInterval      = time.Hour
	DefaultAlertsPerHour = 1.0
	DefaultBurst         = 1
)

// Detector finds anomalies in a dataset column
type Detector interface {
	Detect(ctx context.Context, datasetID, column, notifyAddress string) (*anomaly.Result, error)
}

type Options struct {
	Interval time.Duration
	// AlertsPerHour limits notifications per job. Zero or less disables the limit.
	AlertsPerHour float64
	Burst         int

	Notifier service.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewDefaultOptions() *Options {
	return &Options{
		Interval:      DefaultInterval,
		AlertsPerHour: DefaultAlertsPerHour,
		Burst:         DefaultBurst,
	}
}

// JobSpec describes a recurring check. A zero interval uses the registry default.
type JobSpec struct {
	DatasetID     string        `json:"dataset_id" yaml:"dataset_id"`
	Column        string        `json:"column" yaml:"column"`
	NotifyAddress string        `json:"notify_address" yaml:"notify_address"`
	Interval      time.Duration `json:"interval" yaml:"interval"`
}

// JobInfo is a snapshot of a registered job
type JobInfo struct {
	ID        string    `json:"id"`
	Spec      JobSpec   `json:"spec"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastCount int       `json:"last_count"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Alerts    int       `json:"alerts"`
	Throttled int       `json:"throttled"`
}

// JobID names the check of a dataset column. Scheduling the same pair again replaces
// the existing job.
func JobID(datasetID, column string) string {
	return fmt.Sprintf("anomaly_%s_%s", datasetID, column)
}

type job struct {
	info    JobInfo
	limiter *rate.Limiter

	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the job loop and waits for it to exit
func (j *job) stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
}

// Registry owns every scheduled job. It is created at startup, jobs run while Run is
// active and Close tears everything down.
type Registry struct {
	detector Detector
	opt      Options
	metrics  *metrics.Metrics
	notifier service.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	closed  bool
}

func NewRegistry(detector Detector, opt *Options) (*Registry, error) {
	if detector == nil {
		return nil, fmt.Errorf("no detector provided, %w", errs.ErrConfiguration)
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	o := *opt
	if o.Interval < 0 {
		return nil, fmt.Errorf("interval %s, %w", o.Interval, errs.ErrConfiguration)
	}
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.Burst < 1 {
		o.Burst = DefaultBurst
	}
	r := &Registry{
		detector: detector,
		opt:      o,
		metrics:  o.Metrics,
		notifier: o.Notifier,
		logger:   o.Logger,
		jobs:     make(map[string]*job),
	}
	if r.metrics == nil {
		r.metrics = metrics.New(prometheus.NewRegistry())
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.notifier == nil {
		r.notifier = &service.LogNotifier{Logger: r.logger}
	}
	return r, nil
}

func (r *Registry) newLimiter() *rate.Limiter {
	if r.opt.AlertsPerHour <= 0 {
		return rate.NewLimiter(rate.Inf, r.opt.Burst)
	}
	return rate.NewLimiter(rate.Limit(r.opt.AlertsPerHour/3600), r.opt.Burst)
}

// Schedule registers a recurring check and returns its id. An existing job for the same
// dataset column is stopped and replaced.
func (r *Registry) Schedule(spec JobSpec) (string, error) {
	if spec.DatasetID == "" || spec.Column == "" {
		return "", fmt.Errorf("dataset id and column are required, %w", errs.ErrConfiguration)
	}
	if spec.Interval < 0 {
		return "", fmt.Errorf("interval %s, %w", spec.Interval, errs.ErrConfiguration)
	}
	if spec.Interval == 0 {
		spec.Interval = r.opt.Interval
	}

	id := JobID(spec.DatasetID, spec.Column)
	j := &job{
		info:    JobInfo{ID: id, Spec: spec},
		limiter: r.newLimiter(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	old := r.jobs[id]
	r.jobs[id] = j
	if r.running {
		r.start(j)
	}
	r.metrics.ScheduledJobs.Set(float64(len(r.jobs)))
	r.mu.Unlock()

	if old != nil {
		old.stop()
		r.logger.Info("replaced monitor job", "job_id", id, "interval", spec.Interval)
	} else {
		r.logger.Info("scheduled monitor job", "job_id", id, "interval", spec.Interval)
	}
	return id, nil
}

// Cancel stops and removes a job
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	j, exists := r.jobs[id]
	if exists {
		delete(r.jobs, id)
		r.metrics.ScheduledJobs.Set(float64(len(r.jobs)))
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%q, %w", id, ErrJobNotFound)
	}
	j.stop()
	r.logger.Info("cancelled monitor job", "job_id", id)
	return nil
}

// Jobs returns a snapshot of every registered job ordered by id
func (r *Registry) Jobs() []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobInfo, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Run starts every job and blocks until ctx is done or the registry is closed. Jobs
// scheduled while running start immediately.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	group, gctx := errgroup.WithContext(ctx)
	r.group = group
	r.ctx, r.cancel = context.WithCancel(gctx)
	r.running = true
	for _, j := range r.jobs {
		r.start(j)
	}
	runCtx := r.ctx
	r.mu.Unlock()

	<-runCtx.Done()

	r.mu.Lock()
	r.running = false
	r.cancel()
	r.mu.Unlock()
	return group.Wait()
}

// Close stops every job. A closed registry cannot be run or scheduled again.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel := r.cancel
	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.jobs = make(map[string]*job)
	r.metrics.ScheduledJobs.Set(0)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, j := range jobs {
		j.stop()
	}
	return nil
}

// start launches the job loop. The caller holds r.mu while running.
func (r *Registry) start(j *job) {
	ctx, cancel := context.WithCancel(r.ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.info.NextRun = time.Now().Add(j.info.Spec.Interval)
	r.group.Go(func() error {
		defer close(j.done)
		r.loop(ctx, j)
		return nil
	})
}

func (r *Registry) loop(ctx context.Context, j *job) {
	ticker := time.NewTicker(j.info.Spec.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			j.info.NextRun = time.Now().Add(j.info.Spec.Interval)
			r.mu.Unlock()
			r.check(ctx, j)
		}
	}
}

// Trigger runs the check of a job once, outside of its schedule
func (r *Registry) Trigger(ctx context.Context, id string) (*anomaly.Result, error) {
	r.mu.Lock()
	j, exists := r.jobs[id]
	r.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("%q, %w", id, ErrJobNotFound)
	}
	return r.check(ctx, j)
}

func (r *Registry) check(ctx context.Context, j *job) (*anomaly.Result, error) {
	spec := j.info.Spec
	res, err := r.detector.Detect(ctx, spec.DatasetID, spec.Column, "")

	r.mu.Lock()
	j.info.LastRun = time.Now()
	j.info.Runs++
	if err != nil {
		j.info.LastError = err.Error()
	} else {
		j.info.LastError = ""
		j.info.LastCount = res.Count
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("anomaly check failed", "job_id", j.info.ID, "error", err)
		return nil, err
	}
	if res.Count == 0 || spec.NotifyAddress == "" {
		return res, nil
	}

	if !j.limiter.Allow() {
		r.metrics.AlertsThrottled.Inc()
		r.mu.Lock()
		j.info.Throttled++
		r.mu.Unlock()
		r.logger.Debug("alert throttled", "job_id", j.info.ID, "count", res.Count)
		return res, nil
	}
	alert := service.NewAlert(spec.DatasetID, spec.Column, spec.NotifyAddress, res)
	if err := r.notifier.Notify(ctx, alert); err != nil {
		r.logger.Error("unable to send alert", "job_id", j.info.ID, "address", spec.NotifyAddress, "error", err)
		return res, fmt.Errorf("unable to send alert, %w", err)
	}
	r.metrics.AlertsSent.Inc()
	r.mu.Lock()
	j.info.Alerts++
	r.mu.Unlock()
	return res, nil
}
