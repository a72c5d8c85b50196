package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
	adapterCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_call_duration_seconds",
			Help:    "Duration of outbound supplier/marketplace API calls.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"adapter", "operation", "outcome"},
	)
	importRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_records_total",
			Help: "External product records processed by the import engine.",
		},
		[]string{"result"},
	)
	refreshRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_rows_total",
			Help: "Rows updated by price/stock refresh.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(adapterCallDuration)
	prometheus.MustRegister(importRecordsTotal)
	prometheus.MustRegister(refreshRowsTotal)
}

// RecordRequest записывает метрики для HTTP-запроса.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordAdapterCall записывает длительность обращения к внешнему API.
func RecordAdapterCall(adapter, operation string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	adapterCallDuration.WithLabelValues(adapter, operation, outcome).Observe(duration.Seconds())
}

// RecordImport добавляет итоги одного прогона импорта.
func RecordImport(imported, updated, skipped, failed int) {
	importRecordsTotal.WithLabelValues("imported").Add(float64(imported))
	importRecordsTotal.WithLabelValues("updated").Add(float64(updated))
	importRecordsTotal.WithLabelValues("skipped").Add(float64(skipped))
	importRecordsTotal.WithLabelValues("error").Add(float64(failed))
}

func RecordRefresh(kind string, rows int64) {
	refreshRowsTotal.WithLabelValues(kind).Add(float64(rows))
}

// classifyStatus классифицирует HTTP-статус код в строку.
func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
