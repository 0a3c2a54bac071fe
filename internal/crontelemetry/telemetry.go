// Package crontelemetry exposes the three Prometheus instruments named in
// spec §6: jobs_executed_total, job_duration_seconds, scheduler_ticks_total.
// All record paths are no-ops until Register is called, mirroring the
// teacher's internal/metrics package exactly.
package crontelemetry

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	jobsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cronsched",
			Name:      "jobs_executed_total",
			Help:      "Number of cron job executions, labeled by job name and terminal status.",
		}, []string{"job_name", "status"},
	)
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cronsched",
			Name:      "job_duration_seconds",
			Help:      "Observed execution duration per job.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_name"},
	)
	schedulerTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cronsched",
			Name:      "scheduler_ticks_total",
			Help:      "Number of tick-loop iterations.",
		}, []string{},
	)
)

// Register registers all instruments with r. Safe to call multiple times;
// subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{jobsExecuted, jobDuration, schedulerTicks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer's metrics. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// IncJobExecuted records one completed execution. No-op until Register.
func IncJobExecuted(jobName, status string) {
	if regOK.Load() {
		jobsExecuted.WithLabelValues(jobName, status).Inc()
	}
}

// ObserveJobDuration records an execution's wall-clock duration in seconds.
func ObserveJobDuration(jobName string, seconds float64) {
	if regOK.Load() {
		jobDuration.WithLabelValues(jobName).Observe(seconds)
	}
}

// IncSchedulerTick records one tick-loop iteration.
func IncSchedulerTick() {
	if regOK.Load() {
		schedulerTicks.WithLabelValues().Inc()
	}
}
