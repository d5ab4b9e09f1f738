// Package metrics exposes run and fetch metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/report"
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// Metrics bundles the collectors on a dedicated registry.
type Metrics struct {
	Registry       *prometheus.Registry
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunFailures    prometheus.Gauge
	LastSuccessful prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_fetches_total",
			Help: "Finished fetches by brand and outcome (ok or failure reason).",
		},
		[]string{"brand", "outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_tracker_fetch_duration_seconds",
			Help:    "Time from task start to price or failure.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_runs_total",
			Help: "Runs by result.",
		},
		[]string{"result"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_tracker_run_duration_seconds",
			Help:    "Wall time of a full run.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
	runFailures := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "price_tracker_last_run_failed_entries",
			Help: "Entries without a price in the most recent run.",
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "price_tracker_last_successful_run_timestamp_seconds",
			Help: "Unix time the last run that persisted its dataset finished.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, runs, runDuration, runFailures, lastSuccess)

	return &Metrics{
		Registry:       registry,
		FetchesTotal:   fetches,
		FetchDuration:  fetchDuration,
		RunsTotal:      runs,
		RunDuration:    runDuration,
		RunFailures:    runFailures,
		LastSuccessful: lastSuccess,
	}
}

// ObserveFetch records one finished fetch. An empty reason is a success.
func (m *Metrics) ObserveFetch(brand string, reason models.FailureReason, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if reason != "" {
		outcome = string(reason)
	}
	m.FetchesTotal.WithLabelValues(brand, outcome).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

// ObserveRun records a finished run. err is the run-level error, if any.
func (m *Metrics) ObserveRun(r report.Report, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("success").Inc()
	m.RunFailures.Set(float64(r.Failed()))
	m.LastSuccessful.Set(float64(r.FinishedAt.Unix()))
}
