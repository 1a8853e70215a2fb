package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarscout_runs_total",
			Help: "Posting runs by aggregate status.",
		},
		[]string{"status"},
	)

	postsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarscout_posts_total",
			Help: "Per-unit publish outcomes by platform.",
		},
		[]string{"platform", "outcome"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarscout_fetch_duration_seconds",
			Help:    "Duration of the NOAA snapshot fetch.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarscout_publish_duration_seconds",
			Help:    "Duration of the publish step across all platforms.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	lastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarscout_last_run_timestamp_seconds",
			Help: "Unix time of the last completed posting run.",
		},
	)
)
