package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusPartial = "partial"
)

type Metrics struct {
	ChunkRequestsTotal   *prometheus.CounterVec
	ChunkRequestDuration *prometheus.HistogramVec
	ObservationsFetched  *prometheus.CounterVec
	ArchiveSyncRunsTotal *prometheus.CounterVec
	ArchiveRowsUpserted  prometheus.Counter
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// to expose them through promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunkRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nbp_chunk_requests_total",
				Help: "Total number of chunk requests sent to the NBP API",
			},
			[]string{"currency", "status"},
		),

		ChunkRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nbp_chunk_request_duration_seconds",
				Help:    "NBP chunk request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"currency"},
		),

		ObservationsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nbp_observations_fetched_total",
				Help: "Total number of observations returned by the NBP API",
			},
			[]string{"currency"},
		),

		ArchiveSyncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_sync_runs_total",
				Help: "Total number of archive sync runs per currency",
			},
			[]string{"status"},
		),

		ArchiveRowsUpserted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "archive_rows_upserted_total",
				Help: "Total number of observations written to the archive",
			},
		),
	}
}
