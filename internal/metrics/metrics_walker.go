package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	treeWalkCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slspack_tree_walk_count_total",
			Help: "Total number of file tree walks",
		},
	)

	treeWalkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slspack_tree_walk_duration_seconds",
			Help:    "File tree walk duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
		},
		[]string{"root"},
	)

	treeWalkFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slspack_tree_walk_files",
			Help: "Number of files found by the last walk of a root",
		},
		[]string{"root"},
	)
)

// TreeWalked records a completed walk of a selection root.
func TreeWalked(root string, files int, startTime time.Time) {
	treeWalkCount.Inc()
	treeWalkDuration.WithLabelValues(root).Observe(time.Since(startTime).Seconds())
	treeWalkFiles.WithLabelValues(root).Set(float64(files))
}
