package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Ingestion counters, shared by the batch coordinator.
var (
	FilesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cloudface",
		Subsystem: "ingest",
		Name:      "files_processed_total",
		Help:      "Number of files pulled through the ingestion pipeline.",
	})

	FacesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cloudface",
		Subsystem: "ingest",
		Name:      "faces_indexed_total",
		Help:      "Number of face descriptors written to the face index.",
	})

	FileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cloudface",
		Subsystem: "ingest",
		Name:      "file_errors_total",
		Help:      "Number of per-file ingestion failures (decode, index write).",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cloudface",
		Subsystem: "ingest",
		Name:      "batch_duration_seconds",
		Help:      "Wall-clock duration of an ingestion batch.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
