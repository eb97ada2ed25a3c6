// Package metrics содержит Prometheus-метрики заданий пайплайна.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobRunsTotal количество запусков заданий по статусу
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "virality",
			Name:      "job_runs_total",
			Help:      "Total number of pipeline job runs",
		},
		[]string{"job", "status"},
	)

	// JobDuration длительность заданий
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "virality",
			Name:      "job_duration_seconds",
			Help:      "Duration of pipeline job runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	// RowsWritten количество записанных строк по таблицам
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "virality",
			Name:      "rows_written_total",
			Help:      "Total number of rows written by the pipeline",
		},
		[]string{"table"},
	)

	// SourceFailures ошибки внешних источников, замененные нулевыми показаниями
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "virality",
			Name:      "source_failures_total",
			Help:      "Total number of metric/funding source failures treated as zero readings",
		},
		[]string{"source"},
	)
)

// RecordJob фиксирует запуск задания
func RecordJob(job string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "failed"
	}
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordRows фиксирует количество записанных строк
func RecordRows(table string, n int) {
	if n > 0 {
		RowsWritten.WithLabelValues(table).Add(float64(n))
	}
}

// RecordSourceFailure фиксирует сбой источника
func RecordSourceFailure(source string) {
	SourceFailures.WithLabelValues(source).Inc()
}

// Handler HTTP-обработчик для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
