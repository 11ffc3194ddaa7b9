// Package metrics holds the prometheus instruments of the forecasting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the system
type Metrics struct {
	ForecastsTotal  *prometheus.CounterVec
	ForecastErrors  *prometheus.CounterVec
	FitDuration     *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	AnomaliesTotal  *prometheus.CounterVec
	AlertsSent      prometheus.Counter
	AlertsThrottled prometheus.Counter
	ScheduledJobs   prometheus.Gauge
}

// New creates and registers all metrics with reg. A nil registerer uses the default
// prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurolytix_forecasts_total",
				Help: "Number of forecasts produced per method",
			},
			[]string{"method"},
		),
		ForecastErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurolytix_forecast_errors_total",
				Help: "Number of failed forecast requests per method",
			},
			[]string{"method"},
		),
		FitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neurolytix_fit_duration_seconds",
				Help:    "Time spent fitting a forecaster",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"method"},
		),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "neurolytix_model_cache_hits_total",
			Help: "Number of forecasts served from a warm fitted model",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "neurolytix_model_cache_misses_total",
			Help: "Number of forecasts that required a fresh fit",
		}),
		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurolytix_anomalies_total",
				Help: "Number of anomalous points detected per dataset",
			},
			[]string{"dataset_id"},
		),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "neurolytix_alerts_sent_total",
			Help: "Number of anomaly alerts handed to the notifier",
		}),
		AlertsThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "neurolytix_alerts_throttled_total",
			Help: "Number of anomaly alerts dropped by the rate limiter",
		}),
		ScheduledJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neurolytix_scheduled_jobs",
			Help: "Number of registered monitor jobs",
		}),
	}
}
