// Package metrics provides Prometheus instrumentation for the matching
// engine: browse outcomes, queue size, pairing attempts and wait times.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BrowsePicks counts PickNext outcomes, labeled by result:
	// "found", "found_after_reset" or "none".
	BrowsePicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbot_browse_picks_total",
		Help: "Browse candidate selections by outcome",
	}, []string{"result"})

	// QueueSize tracks users currently waiting in the roulette queue on
	// this instance.
	QueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meetbot_roulette_queue_size",
		Help: "Users with a live matching task",
	})

	// MatchAttempts counts attemptMatch runs, labeled by outcome:
	// "paired", "empty", "conflict", "lock_timeout", "error".
	MatchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbot_roulette_attempts_total",
		Help: "Pairing attempts by outcome",
	}, []string{"outcome"})

	// PairsActive tracks pairs created minus pairs ended by this instance.
	PairsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meetbot_roulette_pairs_active",
		Help: "Active roulette pairs",
	})

	// WaitDuration records the time from joining the queue to being paired.
	WaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetbot_roulette_wait_seconds",
		Help:    "Time from queue join to pairing",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// ClaimsCleared counts stale claims released by the janitor.
	ClaimsCleared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meetbot_roulette_stale_claims_cleared_total",
		Help: "Stale queue claims cleared by the janitor",
	})
)

func init() {
	prometheus.MustRegister(
		BrowsePicks,
		QueueSize,
		MatchAttempts,
		PairsActive,
		WaitDuration,
		ClaimsCleared,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
