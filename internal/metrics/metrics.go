// Package metrics exposes Prometheus instrumentation on a side listener,
// separate from the API port.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Latency of the derived-insight queries, labeled by algorithm
	InsightQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shoplens_insight_query_seconds",
		Help:    "Latency of derived-insight queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"insight"})

	// Total insight queries served, labeled by algorithm and outcome
	InsightQueryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_insight_queries_total",
		Help: "Total derived-insight queries served",
	}, []string{"insight", "outcome"})

	// Latency of the composite dashboard query
	DashboardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shoplens_dashboard_query_seconds",
		Help:    "Latency of the composite dashboard query",
		Buckets: prometheus.DefBuckets,
	})

	// Extraction runs by final status (completed, partial, failed)
	ExtractionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_extraction_runs_total",
		Help: "Extraction runs by final status",
	}, []string{"status"})

	// Per-category extraction outcomes
	ExtractionCategoriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_extraction_categories_total",
		Help: "Extraction category outcomes",
	}, []string{"category", "status"})

	// Events written to the store by the extraction pipeline
	EventsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_events_written_total",
		Help: "Events written by the extraction pipeline",
	}, []string{"category"})
)

func Init() {
	prometheus.MustRegister(
		InsightQueryDuration,
		InsightQueryTotal,
		DashboardDuration,
		ExtractionRunsTotal,
		ExtractionCategoriesTotal,
		EventsWrittenTotal,
	)
}

// ObserveInsight records one insight query.
func ObserveInsight(insight string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	InsightQueryDuration.WithLabelValues(insight).Observe(time.Since(start).Seconds())
	InsightQueryTotal.WithLabelValues(insight, outcome).Inc()
}

// Serve exposes /metrics on its own port. It blocks, so callers run it in a
// goroutine alongside the API server.
func Serve(port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Metrics listener started", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
