package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics duración y resultado de trabajos en segundo plano (backup programado).
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewJobMetrics registra las métricas de jobs. reg nil = métricas desactivadas.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duración de jobs en segundos.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success_total",
		Help: "Ejecuciones exitosas.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure_total",
		Help: "Ejecuciones fallidas.",
	}, []string{"job"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_skipped_total",
		Help: "Evaluaciones que no ejecutaron, por motivo.",
	}, []string{"job", "reason"})
	reg.MustRegister(duration, success, failure, skipped)
	return &JobMetrics{duration: duration, success: success, failure: failure, skipped: skipped}
}

// ObserveDuration registra la duración del job.
func (j *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

// IncSuccess incrementa éxitos.
func (j *JobMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure incrementa fallas.
func (j *JobMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncSkipped incrementa evaluaciones omitidas con su motivo.
func (j *JobMetrics) IncSkipped(job, reason string) {
	if j == nil || j.skipped == nil {
		return
	}
	j.skipped.WithLabelValues(normalizeLabel(job), normalizeLabel(reason)).Inc()
}
