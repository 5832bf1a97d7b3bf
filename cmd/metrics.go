package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics are the query server's Prometheus collectors.
type serverMetrics struct {
	queries *prometheus.CounterVec
	latency *prometheus.HistogramVec
	records prometheus.Gauge
	reloads *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	f := promauto.With(reg)
	return &serverMetrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lodging",
			Name:      "queries_total",
			Help:      "Queries answered, by question type and result status.",
		}, []string{"question", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lodging",
			Name:      "query_duration_seconds",
			Help:      "Time spent running a query against the snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"question"}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lodging",
			Name:      "snapshot_records",
			Help:      "Records in the snapshot currently served.",
		}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lodging",
			Name:      "reloads_total",
			Help:      "Snapshot reloads, by outcome.",
		}, []string{"result"}),
	}
}
