package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
)

type LifecycleMetrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	pollsTotal     *prometheus.CounterVec
	jobsInFlight   prometheus.Gauge
	reconcileTotal *prometheus.CounterVec
}

func NewLifecycleMetrics(service string) *LifecycleMetrics {
	registry := prometheus.NewRegistry()

	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvup",
			Subsystem: "lifecycle",
			Name:      "uploads_total",
			Help:      "Finished upload jobs by terminal state.",
		},
		[]string{"service", "terminal_state"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvup",
			Subsystem: "lifecycle",
			Name:      "upload_duration_seconds",
			Help:      "Initiate-to-terminal duration in seconds by terminal state.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "terminal_state"},
	)
	pollsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvup",
			Subsystem: "lifecycle",
			Name:      "poll_attempts_total",
			Help:      "Status poll attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvup",
			Subsystem: "lifecycle",
			Name:      "jobs_in_flight",
			Help:      "Upload jobs currently between initiate and a terminal observation.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reconcileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvup",
			Subsystem: "lifecycle",
			Name:      "reconcile_total",
			Help:      "Reconciliation attempts by injection outcome.",
		},
		[]string{"service", "injected"},
	)

	registry.MustRegister(uploadsTotal, uploadDuration, pollsTotal, jobsInFlight, reconcileTotal)

	return &LifecycleMetrics{
		registry:       registry,
		uploadsTotal:   uploadsTotal,
		uploadDuration: uploadDuration,
		pollsTotal:     pollsTotal,
		jobsInFlight:   jobsInFlight,
		reconcileTotal: reconcileTotal,
	}
}

func (m *LifecycleMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *LifecycleMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *LifecycleMetrics) FinishJob(service string, state domain.JobState, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.uploadsTotal.WithLabelValues(service, string(state)).Inc()
	m.uploadDuration.WithLabelValues(service, string(state)).Observe(duration.Seconds())
}

func (m *LifecycleMetrics) PollAttempt(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.pollsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *LifecycleMetrics) ReconcileOutcome(service string, injected bool) {
	label := "false"
	if injected {
		label = "true"
	}
	m.reconcileTotal.WithLabelValues(service, label).Inc()
}
