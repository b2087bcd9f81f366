// Package metrics exposes run metrics for Prometheus.
//
// snexsync is a batch job, so nothing is scraped: each run fills a fresh
// registry and, when a Pushgateway is configured, pushes it once at the end.
// The last-success gauge is only pushed by runs that did not abort.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "snexsync"

// Metrics holds the collectors of one run.
//
// Thread-safety: collectors are safe for concurrent use.
type Metrics struct {
	Entries      *prometheus.CounterVec
	Deferred     prometheus.Gauge
	LastDuration prometheus.Gauge
	LastSuccess  prometheus.Gauge

	registry  *prometheus.Registry
	succeeded bool
}

// New creates the collectors in a new registry.
func New() *Metrics {
	m := &Metrics{
		Entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_total",
				Help:      "Change-log entries processed, by entity, action and outcome",
			},
			[]string{"entity", "action", "outcome"},
		),
		Deferred: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deferred_entries",
			Help:      "Entries left pending by the last run after a non-fatal failure",
		}),
		LastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last run completed without aborting",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Entries, m.Deferred, m.LastDuration)
	return m
}

// Registry returns the registry holding the per-run collectors. LastSuccess
// is not in it.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordEntry counts one processed entry.
func (m *Metrics) RecordEntry(entity, action, outcome string) {
	m.Entries.WithLabelValues(entity, action, outcome).Inc()
}

// ObserveRun records the end of a run. finished is only recorded as the
// last success when the run did not abort.
func (m *Metrics) ObserveRun(duration time.Duration, deferred int, finished time.Time, aborted bool) {
	m.LastDuration.Set(duration.Seconds())
	m.Deferred.Set(float64(deferred))
	if !aborted {
		m.LastSuccess.Set(float64(finished.Unix()))
		m.succeeded = true
	}
}

// Push sends the metrics to the Pushgateway at url under job. A successful
// run replaces the whole group. Otherwise only the per-run metrics are
// replaced, so the gateway keeps the last success of an earlier run.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	p := push.New(url, job).Gatherer(m.registry)
	var err error
	if m.succeeded {
		err = p.Collector(m.LastSuccess).PushContext(ctx)
	} else {
		err = p.AddContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
