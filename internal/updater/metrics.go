package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_update_item_outcomes_total",
		Help: "Item outcomes per update cycle, by outcome",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_update_cycle_duration_seconds",
		Help:    "Wall time of a full update cycle",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	cycleBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_update_cycle_batch_size",
		Help:    "Number of items selected per cycle",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)

func observeOutcome(outcome string) {
	itemOutcomes.WithLabelValues(outcome).Inc()
}

func observeCycle(report *CycleReport) {
	cycleDuration.Observe(report.CompletedAt.Sub(report.StartedAt).Seconds())
	cycleBatchSize.Observe(float64(report.Processed))
}
