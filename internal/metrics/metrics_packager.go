package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	artifactBuildFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slspack_artifact_build_failed",
			Help: "Number of times an artifact has failed to build",
		},
		[]string{"unit", "error_type"},
	)

	artifactBuildCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slspack_artifact_build_count",
			Help: "Total number of times an artifact has been built",
		},
	)

	artifactBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slspack_artifact_build_duration_seconds",
			Help:    "Artifact build duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"unit"},
	)

	artifactSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slspack_artifact_size_bytes",
			Help: "Size of the last built artifact in bytes",
		},
		[]string{"unit"},
	)
)

// ArtifactBuildSucceeded records a finished artifact build.
func ArtifactBuildSucceeded(unit string, sizeBytes int64, startTime time.Time) {
	artifactBuildCount.Inc()
	artifactBuildDuration.WithLabelValues(unit).Observe(time.Since(startTime).Seconds())
	artifactSizeBytes.WithLabelValues(unit).Set(float64(sizeBytes))
}

// ArtifactBuildFailed records a failed artifact build, labeled with the
// error taxonomy bucket it fell into.
func ArtifactBuildFailed(unit, errorType string) {
	artifactBuildCount.Inc()
	artifactBuildFailed.WithLabelValues(unit, errorType).Inc()
}
