package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neurolytix/go-forecaster/anomaly"
	"github.com/neurolytix/go-forecaster/errs"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	mu    sync.Mutex
	calls map[string]int
	count int
	err   error
}

func newFakeDetector(count int) *fakeDetector {
	return &fakeDetector{calls: make(map[string]int), count: count}
}

func (d *fakeDetector) Detect(ctx context.Context, datasetID, column, notifyAddress string) (*anomaly.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[JobID(datasetID, column)]++
	if d.err != nil {
		return nil, d.err
	}
	res := &anomaly.Result{Count: d.count}
	for i := 0; i < d.count; i++ {
		res.Anomalies = append(res.Anomalies, anomaly.Point{Value: float64(i), Score: 4})
	}
	return res, nil
}

func (d *fakeDetector) Calls(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[id]
}

func setupRegistry(t *testing.T, d Detector, opt *Options) (*Registry, *service.MemoryNotifier, *metrics.Metrics) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	notifier := service.NewMemoryNotifier(100)
	m := metrics.New(prometheus.NewRegistry())
	opt.Notifier = notifier
	opt.Metrics = m
	r, err := NewRegistry(d, opt)
	require.Nil(t, err)
	t.Cleanup(func() { r.Close() })
	return r, notifier, m
}

func TestJobID(t *testing.T) {
	assert.Equal(t, "anomaly_sales_units", JobID("sales", "units"))
}

func TestNewRegistryErrors(t *testing.T) {
	_, err := NewRegistry(nil, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = NewRegistry(newFakeDetector(0), &Options{Interval: -time.Second})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestScheduleReplaceCancel(t *testing.T) {
	r, _, m := setupRegistry(t, newFakeDetector(0), nil)

	testData := map[string]struct {
		spec JobSpec
		err  error
	}{
		"missing dataset":   {spec: JobSpec{Column: "units"}, err: errs.ErrConfiguration},
		"missing column":    {spec: JobSpec{DatasetID: "sales"}, err: errs.ErrConfiguration},
		"negative interval": {spec: JobSpec{DatasetID: "sales", Column: "units", Interval: -time.Minute}, err: errs.ErrConfiguration},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := r.Schedule(td.spec)
			assert.ErrorIs(t, err, td.err)
		})
	}

	id, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units"})
	require.Nil(t, err)
	assert.Equal(t, "anomaly_sales_units", id)

	_, err = r.Schedule(JobSpec{DatasetID: "web", Column: "visits", Interval: time.Minute})
	require.Nil(t, err)

	_, err = r.Schedule(JobSpec{DatasetID: "sales", Column: "units", Interval: 5 * time.Minute, NotifyAddress: "ops@example.com"})
	require.Nil(t, err)

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "anomaly_sales_units", jobs[0].ID)
	assert.Equal(t, 5*time.Minute, jobs[0].Spec.Interval)
	assert.Equal(t, "ops@example.com", jobs[0].Spec.NotifyAddress)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScheduledJobs))

	require.Nil(t, r.Cancel(id))
	assert.ErrorIs(t, r.Cancel(id), ErrJobNotFound)
	require.Len(t, r.Jobs(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScheduledJobs))
}

func TestDefaultInterval(t *testing.T) {
	r, _, _ := setupRegistry(t, newFakeDetector(0), &Options{Interval: 10 * time.Minute})
	_, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units"})
	require.Nil(t, err)
	assert.Equal(t, 10*time.Minute, r.Jobs()[0].Spec.Interval)
}

func TestTriggerThrottle(t *testing.T) {
	d := newFakeDetector(2)
	r, notifier, m := setupRegistry(t, d, &Options{AlertsPerHour: 1, Burst: 1})

	id, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units", NotifyAddress: "ops@example.com"})
	require.Nil(t, err)

	for i := 0; i < 3; i++ {
		res, err := r.Trigger(context.Background(), id)
		require.Nil(t, err)
		assert.Equal(t, 2, res.Count)
	}

	alerts := notifier.Recent(0)
	require.Len(t, alerts, 1)
	assert.Equal(t, "sales", alerts[0].DatasetID)
	assert.Equal(t, 2, alerts[0].Result.Count)

	info := r.Jobs()[0]
	assert.Equal(t, 3, info.Runs)
	assert.Equal(t, 1, info.Alerts)
	assert.Equal(t, 2, info.Throttled)
	assert.Equal(t, 2, info.LastCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsThrottled))

	_, err = r.Trigger(context.Background(), "anomaly_web_visits")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTriggerUnlimited(t *testing.T) {
	r, notifier, _ := setupRegistry(t, newFakeDetector(1), &Options{AlertsPerHour: 0})
	id, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units", NotifyAddress: "ops@example.com"})
	require.Nil(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.Trigger(context.Background(), id)
		require.Nil(t, err)
	}
	assert.Len(t, notifier.Recent(0), 5)
}

func TestTriggerDetectError(t *testing.T) {
	d := newFakeDetector(0)
	d.err = errors.New("dataset unavailable")
	r, notifier, _ := setupRegistry(t, d, nil)
	id, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units", NotifyAddress: "ops@example.com"})
	require.Nil(t, err)

	_, err = r.Trigger(context.Background(), id)
	assert.ErrorIs(t, err, d.err)
	assert.Equal(t, "dataset unavailable", r.Jobs()[0].LastError)
	assert.Empty(t, notifier.Recent(0))
}

func TestRunLifecycle(t *testing.T) {
	d := newFakeDetector(0)
	r, _, _ := setupRegistry(t, d, &Options{Interval: 5 * time.Millisecond})

	_, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units"})
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return d.Calls("anomaly_sales_units") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	// jobs scheduled while running start right away
	_, err = r.Schedule(JobSpec{DatasetID: "web", Column: "visits"})
	require.Nil(t, err)
	assert.Eventually(t, func() bool {
		return d.Calls("anomaly_web_visits") >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	require.Nil(t, r.Close())
	assert.Empty(t, r.Jobs())
	assert.ErrorIs(t, r.Run(context.Background()), ErrClosed)
	_, err = r.Schedule(JobSpec{DatasetID: "sales", Column: "units"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseStopsRun(t *testing.T) {
	r, _, _ := setupRegistry(t, newFakeDetector(0), &Options{Interval: time.Hour})
	_, err := r.Schedule(JobSpec{DatasetID: "sales", Column: "units"})
	require.Nil(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return !r.Jobs()[0].NextRun.IsZero()
	}, 2*time.Second, 5*time.Millisecond)

	require.Nil(t, r.Close())
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after close")
	}
}
