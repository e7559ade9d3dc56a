// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FeedUpdates    *prometheus.CounterVec
	StationQueries *prometheus.CounterVec
	QuerySeconds   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		FeedUpdates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "carbumap_feed_updates_total",
			Help: "Total number of feed update attempts.",
		}, []string{"status"}),
		StationQueries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "carbumap_station_queries_total",
			Help: "Total number of station queries served, by endpoint.",
		}, []string{"endpoint"}),
		QuerySeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbumap_query_duration_seconds",
			Help:    "Duration of station queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
